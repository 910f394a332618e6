package contracts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bonaventura-EW/olx-monitor/internal/constants"
	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
)

func TestValidateZeroRatioAlertEvent(t *testing.T) {
	alert := domain.ZeroRatioAlert{
		Profile:      "centrum",
		Timestamp:    time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
		ZeroCount:    6,
		ListingCount: 10,
		Ratio:        0.6,
		Threshold:    0.5,
	}
	body, err := json.Marshal(alert)
	require.NoError(t, err)

	assert.NoError(t, ValidateEvent(constants.EventZeroRatioAlert, constants.EventVersion, body))
}

func TestValidateZeroRatioAlertEventRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing profile", `{"timestamp":"2025-03-10T08:00:00Z","zero_count":6,"listing_count":10,"ratio":0.6,"threshold":0.5}`},
		{"zero listing count", `{"profile":"centrum","timestamp":"2025-03-10T08:00:00Z","zero_count":0,"listing_count":0,"ratio":0,"threshold":0.5}`},
		{"ratio above one", `{"profile":"centrum","timestamp":"2025-03-10T08:00:00Z","zero_count":6,"listing_count":10,"ratio":1.2,"threshold":0.5}`},
		{"unknown field", `{"profile":"centrum","timestamp":"2025-03-10T08:00:00Z","zero_count":6,"listing_count":10,"ratio":0.6,"threshold":0.5,"extra":true}`},
		{"not an object", `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, ValidateEvent(constants.EventZeroRatioAlert, constants.EventVersion, []byte(tt.body)))
		})
	}
}

func TestValidatePriceChangeEvent(t *testing.T) {
	event := domain.PriceChangeEvent{
		ListingID:     "pokoj-ID1",
		Profile:       "centrum",
		Timestamp:     time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
		PreviousPrice: 1000,
		NewPrice:      1400,
		ChangeRatio:   0.4,
	}
	body, err := json.Marshal(event)
	require.NoError(t, err)

	assert.NoError(t, ValidateEvent(constants.EventPriceChange, constants.EventVersion, body))
}

func TestValidateEventUnknownTypeOrVersion(t *testing.T) {
	assert.Error(t, ValidateEvent("NoSuchEvent", "1.0.0", []byte(`{}`)))
	assert.Error(t, ValidateEvent(constants.EventPriceChange, "9.9.9", []byte(`{}`)))
}

func TestValidateProfilesConfig(t *testing.T) {
	valid := `{"profiles":[{"name":"centrum","url":"https://www.olx.pl/nieruchomosci/stancje-pokoje/lublin/"}]}`
	assert.NoError(t, ValidateProfilesConfig([]byte(valid)))

	tests := []struct {
		name string
		body string
	}{
		{"missing profiles key", `{}`},
		{"empty name", `{"profiles":[{"name":"","url":"https://x.pl/"}]}`},
		{"plain http url", `{"profiles":[{"name":"centrum","url":"http://www.olx.pl/"}]}`},
		{"missing url", `{"profiles":[{"name":"centrum"}]}`},
		{"unknown field", `{"profiles":[{"name":"centrum","url":"https://x.pl/","extra":1}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, ValidateProfilesConfig([]byte(tt.body)))
		})
	}
}
