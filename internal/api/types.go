package api

import (
	"github.com/leafsii/crypto-tracker/internal/market"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type AssetListDTO struct {
	Assets []market.Asset `json:"assets"`
	Count  int            `json:"count"`
}

type ReplaceAssetsRequest struct {
	Assets []market.Asset `json:"assets"`
}

type TickerStatusDTO struct {
	Running    bool   `json:"running"`
	Ticks      uint64 `json:"ticks"`
	IntervalMs int64  `json:"intervalMs"`
}

// CacheStatusDTO describes the cache backing live updates. TableTTLMs is
// zero when no table is cached.
type CacheStatusDTO struct {
	Mode       string `json:"mode"`
	TableTTLMs int64  `json:"tableTtlMs"`
}

type StatusDTO struct {
	Loading bool            `json:"loading"`
	Error   *string         `json:"error"`
	Version uint64          `json:"version"`
	Ticker  TickerStatusDTO `json:"ticker"`
	Cache   *CacheStatusDTO `json:"cache,omitempty"`
}

type SetLoadingRequest struct {
	Loading *bool `json:"loading"`
}

type SetErrorRequest struct {
	Message string `json:"message"`
}

type HealthDTO struct {
	Status  string   `json:"status"`
	Reasons []string `json:"reasons,omitempty"`
}
