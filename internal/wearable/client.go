package wearable

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medassist/symptomcheck/internal/diagnosis"
	"github.com/medassist/symptomcheck/internal/shared/config"
)

// Client fetches 7-day activity aggregates from the wearable data provider
// using stored OAuth credentials. It implements diagnosis.WearableSource.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	tokens       TokenStore
	logger       zerolog.Logger
}

// NewClient creates a wearable data client
func NewClient(cfg config.WearableConfig, tokens TokenStore, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:      cfg.BaseURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		tokens:       tokens,
		logger:       logger.With().Str("component", "wearable").Logger(),
	}
}

// Summary returns the user's 7-day rollup of steps, heart rate and sleep.
// Fields whose source aggregate has no buckets come back nil so the prompt
// renders them as not provided instead of a degenerate average.
func (c *Client) Summary(ctx context.Context, userID string) (*diagnosis.WearableSummary, error) {
	token, err := c.tokens.Get(ctx, userID, ProviderFitbit)
	if err != nil {
		return nil, err
	}

	if token.Expired() {
		token, err = c.refresh(ctx, token)
		if err != nil {
			return nil, err
		}
	}

	summary := &diagnosis.WearableSummary{}

	var steps stepsResponse
	if err := c.get(ctx, token, "/1/user/-/activities/steps/date/today/7d.json", &steps); err != nil {
		return nil, err
	}
	summary.AvgDailySteps = averageSteps(steps.ActivitiesSteps)

	var heart heartResponse
	if err := c.get(ctx, token, "/1/user/-/activities/heart/date/today/7d.json", &heart); err != nil {
		return nil, err
	}
	summary.AvgHeartRate = averageHeartRate(heart.ActivitiesHeart)

	end := time.Now()
	start := end.AddDate(0, 0, -6)
	sleepPath := fmt.Sprintf("/1.2/user/-/sleep/date/%s/%s.json",
		start.Format("2006-01-02"), end.Format("2006-01-02"))

	var sleep sleepResponse
	if err := c.get(ctx, token, sleepPath, &sleep); err != nil {
		return nil, err
	}
	summary.AvgSleepHours = averageSleepHours(sleep.Sleep)

	return summary, nil
}

func (c *Client) get(ctx context.Context, token *Token, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("wearable request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrRevoked
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wearable provider returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode wearable response: %w", err)
	}
	return nil
}

// refresh exchanges the stored refresh token for fresh credentials and
// persists them.
func (c *Client) refresh(ctx context.Context, token *Token) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", token.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build refresh request: %w", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		return nil, ErrRevoked
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token refresh returned status %d", resp.StatusCode)
	}

	var payload refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode refresh response: %w", err)
	}

	refreshed := &Token{
		UserID:       token.UserID,
		Provider:     token.Provider,
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second),
	}
	if err := c.tokens.Upsert(ctx, refreshed); err != nil {
		c.logger.Warn().Err(err).Str("user", token.UserID).Msg("failed to persist refreshed token")
	}

	return refreshed, nil
}

// averageSteps averages daily step counts over the buckets present.
func averageSteps(days []dateValue) *float64 {
	var sum float64
	var count int
	for _, d := range days {
		v, err := strconv.ParseFloat(d.Value, 64)
		if err != nil {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return nil
	}
	avg := sum / float64(count)
	return &avg
}

// averageHeartRate averages resting heart rate over days that report one.
func averageHeartRate(days []heartDay) *float64 {
	var sum float64
	var count int
	for _, d := range days {
		if d.Value.RestingHeartRate <= 0 {
			continue
		}
		sum += d.Value.RestingHeartRate
		count++
	}
	if count == 0 {
		return nil
	}
	avg := sum / float64(count)
	return &avg
}

// averageSleepHours averages main-sleep duration per night.
func averageSleepHours(logs []sleepLog) *float64 {
	var sum float64
	var count int
	for _, l := range logs {
		if !l.IsMainSleep || l.MinutesAsleep <= 0 {
			continue
		}
		sum += float64(l.MinutesAsleep) / 60
		count++
	}
	if count == 0 {
		return nil
	}
	avg := sum / float64(count)
	return &avg
}
