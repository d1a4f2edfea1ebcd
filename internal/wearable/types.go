package wearable

import "errors"

// ProviderFitbit is the only wearable data provider currently supported.
const ProviderFitbit = "fitbit"

var (
	// ErrNotConnected means the user never linked a wearable account.
	ErrNotConnected = errors.New("wearable account not connected")
	// ErrRevoked means the stored grant was rejected by the provider.
	ErrRevoked = errors.New("wearable connection revoked")
)

// Wire types for the provider's aggregate endpoints.

type stepsResponse struct {
	ActivitiesSteps []dateValue `json:"activities-steps"`
}

type dateValue struct {
	DateTime string `json:"dateTime"`
	Value    string `json:"value"`
}

type heartResponse struct {
	ActivitiesHeart []heartDay `json:"activities-heart"`
}

type heartDay struct {
	DateTime string     `json:"dateTime"`
	Value    heartValue `json:"value"`
}

type heartValue struct {
	RestingHeartRate float64 `json:"restingHeartRate"`
}

type sleepResponse struct {
	Sleep []sleepLog `json:"sleep"`
}

type sleepLog struct {
	DateOfSleep   string `json:"dateOfSleep"`
	MinutesAsleep int    `json:"minutesAsleep"`
	IsMainSleep   bool   `json:"isMainSleep"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}
