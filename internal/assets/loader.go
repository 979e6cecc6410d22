package assets

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/leafsii/crypto-tracker/internal/market"
	"go.uber.org/zap"
)

// LoadFile reads a JSON array of assets from path.
func LoadFile(path string) ([]market.Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var list []market.Asset
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	if _, err := validate(list); err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}
	return list, nil
}

// Reload replaces the store contents from path, driving the loading flag and
// the advisory error slot. On failure the current assets are kept.
func Reload(s *Store, path string, logger *zap.SugaredLogger) error {
	s.SetLoading(true)
	defer s.SetLoading(false)

	list, err := LoadFile(path)
	if err == nil {
		err = s.SetAssets(list)
	}
	if err != nil {
		logger.Warnw("Asset reload failed; keeping current assets", "path", path, "error", err)
		s.SetError(err.Error())
		return err
	}

	s.ClearError()
	logger.Infow("Assets loaded", "path", path, "count", len(list))
	return nil
}
