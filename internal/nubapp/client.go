// Package nubapp is a client for the Nubapp v4 API used by RESAWOD gyms.
// The request flow (endpoints, form bodies, headers) mirrors what the
// official web app sends from a browser session.
package nubapp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/wod-scheduler/internal/booking"
	"github.com/example/wod-scheduler/internal/schedule"
)

const (
	defaultBaseURL = "https://sport.nubapp.com/api/v4"
	boxOrigin      = "https://box.resawod.com"
	appVersion     = "5.13.06"
	browserUA      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:147.0) " +
		"Gecko/20100101 Firefox/147.0"
)

// Client creates authenticated sessions against one gym application.
// It implements booking.Provider.
type Client struct {
	applicationID      string
	categoryActivityID string
	baseURL            string
	log                zerolog.Logger
}

func New(applicationID, categoryActivityID string, logger zerolog.Logger) *Client {
	return &Client{
		applicationID:      applicationID,
		categoryActivityID: categoryActivityID,
		baseURL:            defaultBaseURL,
		log:                logger.With().Str("component", "nubapp").Logger(),
	}
}

// Login authenticates and returns a session bound to the user. The
// Nubapp login response carries a JWT whose payload holds the id_user
// every later call needs.
func (c *Client) Login(ctx context.Context, login, password string) (booking.Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	s := &Session{
		client: c,
		hc:     &http.Client{Jar: jar, Timeout: 30 * time.Second},
	}

	form := url.Values{}
	form.Set("username", login)
	form.Set("password", password)
	body, err := s.post(ctx, "/login", form)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	var resp struct {
		Token string `json:"token"`
		Data  struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse login response: %w", err)
	}
	token := resp.Token
	if token == "" {
		token = resp.Data.Token
	}
	if token == "" {
		return nil, fmt.Errorf("login: no token in response")
	}
	s.token = token
	s.idUser = idUserFromToken(token)
	if s.idUser == "" {
		return nil, fmt.Errorf("login: no id_user in token")
	}
	c.log.Debug().Str("id_user", s.idUser).Msg("logged in")
	return s, nil
}

// idUserFromToken decodes the JWT payload and pulls out id_user, which
// arrives as a number or a string depending on the backend version.
func idUserFromToken(token string) string {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return ""
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ""
	}
	var claims struct {
		IDUser json.RawMessage `json:"id_user"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return ""
	}
	return trimQuotes(string(claims.IDUser))
}

func trimQuotes(s string) string { return strings.Trim(s, `"`) }

// Session is an authenticated Nubapp session. It implements
// booking.Session.
type Session struct {
	client *Client
	hc     *http.Client
	token  string
	idUser string
}

func (s *Session) post(ctx context.Context, path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.client.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", boxOrigin)
	req.Header.Set("Referer", boxOrigin+"/")
	req.Header.Set("Nubapp-Origin", "user_apps")
	req.Header.Set("sec-fetch-dest", "empty")
	req.Header.Set("sec-fetch-mode", "cors")
	req.Header.Set("sec-fetch-site", "cross-site")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	res, err := s.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	s.client.log.Debug().Str("path", path).Int("status", res.StatusCode).
		Int("bytes", len(body)).Msg("api response")
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("%s: status %d: %s", path, res.StatusCode, snippet(body))
	}
	return body, nil
}

func snippet(b []byte) string {
	const max = 200
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

func (s *Session) baseForm() url.Values {
	form := url.Values{}
	form.Set("app_version", appVersion)
	form.Set("id_application", s.client.applicationID)
	return form
}

// Slots fetches the activity calendar for one date.
func (s *Session) Slots(ctx context.Context, date time.Time) ([]booking.Slot, error) {
	apiDate := schedule.APIDate(date)
	form := s.baseForm()
	form.Set("start_timestamp", apiDate)
	form.Set("end_timestamp", apiDate)
	form.Set("id_user", s.idUser)
	form.Set("id_category_activity", s.client.categoryActivityID)

	body, err := s.post(ctx, "/activities/getActivitiesCalendar.php", form)
	if err != nil {
		return nil, fmt.Errorf("fetch slots: %w", err)
	}
	return decodeSlots(body)
}

// Bookings fetches the user's upcoming bookings and waiting-list
// entries.
func (s *Session) Bookings(ctx context.Context) (booking.Bookings, error) {
	form := s.baseForm()
	form.Set("id_user", s.idUser)
	form.Set("limit", "50")
	form.Set("include_waiting_list", "true")

	body, err := s.post(ctx, "/users/getUserFutureBookings.php", form)
	if err != nil {
		return booking.Bookings{}, fmt.Errorf("fetch bookings: %w", err)
	}
	return decodeBookings(body)
}

// Book reserves the slot directly.
func (s *Session) Book(ctx context.Context, slotID string) (booking.Result, error) {
	form := s.baseForm()
	form.Set("id_activity_calendar", slotID)
	form.Set("id_user", s.idUser)
	form.Set("action_by", s.idUser)
	form.Set("n_guests", "0")
	form.Set("booked_on", "3")

	body, err := s.post(ctx, "/activities/bookActivityCalendar.php", form)
	if err != nil {
		return booking.Result{}, fmt.Errorf("book: %w", err)
	}
	return decodeResult(body)
}

// BookWaitingList joins the slot's waiting list.
func (s *Session) BookWaitingList(ctx context.Context, slotID string) (booking.Result, error) {
	form := s.baseForm()
	form.Set("id_activity_calendar", slotID)
	form.Set("id_user", s.idUser)
	form.Set("action_by", s.idUser)

	body, err := s.post(ctx, "/activities/bookWaitingActivityCalendar.php", form)
	if err != nil {
		return booking.Result{}, fmt.Errorf("book waiting list: %w", err)
	}
	return decodeResult(body)
}

// Categories fetches the gym's activity categories, used by the
// discover command to fill in the config.
func (s *Session) Categories(ctx context.Context) (json.RawMessage, error) {
	body, err := s.post(ctx, "/categories/getCategories.php", s.baseForm())
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	return json.RawMessage(body), nil
}

// IDUser returns the user id extracted from the login token.
func (s *Session) IDUser() string { return s.idUser }

func decodeResult(body []byte) (booking.Result, error) {
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return booking.Result{}, fmt.Errorf("parse booking response: %w", err)
	}
	return booking.Result{Success: resp.Success, Message: resp.Message}, nil
}
