package rabbitmq

import (
	"time"

	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
)

// Wire DTOs for the alert events. They are what the published JSON looks
// like; the schemas under internal/contracts validate exactly these shapes.

type ZeroRatioAlertDTO struct {
	Profile      string    `json:"profile"`
	Timestamp    time.Time `json:"timestamp"`
	ZeroCount    int       `json:"zero_count"`
	ListingCount int       `json:"listing_count"`
	Ratio        float64   `json:"ratio"`
	Threshold    float64   `json:"threshold"`
}

type PriceChangeEventDTO struct {
	ListingID     string    `json:"listing_id"`
	Profile       string    `json:"profile"`
	Timestamp     time.Time `json:"timestamp"`
	PreviousPrice int       `json:"previous_price"`
	NewPrice      int       `json:"new_price"`
	ChangeRatio   float64   `json:"change_ratio"`
}

func toZeroRatioAlertDTO(alert domain.ZeroRatioAlert) ZeroRatioAlertDTO {
	return ZeroRatioAlertDTO{
		Profile:      alert.Profile,
		Timestamp:    alert.Timestamp,
		ZeroCount:    alert.ZeroCount,
		ListingCount: alert.ListingCount,
		Ratio:        alert.Ratio,
		Threshold:    alert.Threshold,
	}
}

func toPriceChangeEventDTO(event domain.PriceChangeEvent) PriceChangeEventDTO {
	return PriceChangeEventDTO{
		ListingID:     event.ListingID,
		Profile:       event.Profile,
		Timestamp:     event.Timestamp,
		PreviousPrice: event.PreviousPrice,
		NewPrice:      event.NewPrice,
		ChangeRatio:   event.ChangeRatio,
	}
}
