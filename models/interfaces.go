package models

import "context"

// CandleClient supplies ordered candle windows for a symbol.
type CandleClient interface {
	GetCandles(ctx context.Context, symbol string, interval string, count int) ([]Candle, error)
	GetHistoricalCandles(ctx context.Context, symbol string, interval string, days int) ([]Candle, error)
}

// CampaignStore persists campaign lifecycle snapshots.
type CampaignStore interface {
	SaveCampaign(c *Campaign) error
	LoadCampaigns(symbol string) ([]*Campaign, error)
}
