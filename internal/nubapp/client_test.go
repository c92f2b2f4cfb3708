package nubapp

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeToken builds an unsigned JWT whose payload carries id_user.
func fakeToken(idUser string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf(`{"id_user":%s}`, idUser)))
	return header + "." + payload + ".sig"
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New("1234", "42", zerolog.Nop())
	c.baseURL = srv.URL
	return c
}

func login(t *testing.T, c *Client) *Session {
	t.Helper()
	sess, err := c.Login(context.Background(), "alice@example.com", "secret")
	require.NoError(t, err)
	return sess.(*Session)
}

func TestLoginExtractsIDUser(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "alice@example.com", r.PostFormValue("username"))
		assert.Equal(t, "secret", r.PostFormValue("password"))
		assert.Equal(t, "user_apps", r.Header.Get("Nubapp-Origin"))
		fmt.Fprintf(w, `{"token":%q}`, fakeToken("777"))
	})

	s := login(t, newTestClient(t, mux))
	assert.Equal(t, "777", s.IDUser())
}

func TestLoginTokenUnderData(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":{"token":%q}}`, fakeToken(`"888"`))
	})

	s := login(t, newTestClient(t, mux))
	assert.Equal(t, "888", s.IDUser())
}

func TestLoginNoToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":"bad credentials"}`)
	})

	_, err := newTestClient(t, mux).Login(context.Background(), "a", "b")
	assert.ErrorContains(t, err, "no token")
}

func TestSlots(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"token":%q}`, fakeToken("777"))
	})
	mux.HandleFunc("/activities/getActivitiesCalendar.php", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "11-06-2024", r.PostFormValue("start_timestamp"))
		assert.Equal(t, "777", r.PostFormValue("id_user"))
		assert.Equal(t, "42", r.PostFormValue("id_category_activity"))
		fmt.Fprint(w, `{"success":true,"data":{"activities_calendar":[
			{"start_timestamp":"2024-06-11 18:00:00","end_timestamp":"2024-06-11 19:00:00",
			 "id_activity_calendar":9001,"name_activity":"CrossFit WOD","n_inscribed":9,"n_capacity":10}
		]}}`)
	})

	s := login(t, newTestClient(t, mux))
	slots, err := s.Slots(context.Background(), time.Date(2024, time.June, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "9001", slots[0].ID)
	assert.Equal(t, "CrossFit WOD", slots[0].Name)
	free, ok := slots[0].FreeSpots()
	assert.True(t, ok)
	assert.Equal(t, 1, free)
}

func TestSlotsDateKeyedEnvelope(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"token":%q}`, fakeToken("777"))
	})
	mux.HandleFunc("/activities/getActivitiesCalendar.php", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"11-06-2024":[
			{"start":"2024-06-11 07:30:00","end":"2024-06-11 08:30:00","id_activity_calendar":"55","name":"Open Box"}
		]}}`)
	})

	s := login(t, newTestClient(t, mux))
	slots, err := s.Slots(context.Background(), time.Date(2024, time.June, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "55", slots[0].ID)
	assert.Equal(t, "Open Box", slots[0].Name)
	_, ok := slots[0].FreeSpots()
	assert.False(t, ok)
}

func TestBookings(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"token":%q}`, fakeToken("777"))
	})
	mux.HandleFunc("/users/getUserFutureBookings.php", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "true", r.PostFormValue("include_waiting_list"))
		fmt.Fprint(w, `{"data":{
			"bookings":[{"start_timestamp":"2024-06-11 18:00:00","end_timestamp":"2024-06-11 19:00:00",
				"id_activity_calendar":1,"name_activity":"CrossFit WOD"}],
			"in_waiting_list":[{"start_timestamp":"2024-06-12 18:00:00","end_timestamp":"2024-06-12 19:00:00",
				"id_activity_calendar":2,"name_activity":"Halterofilia"}]
		}}`)
	})

	s := login(t, newTestClient(t, mux))
	got, err := s.Bookings(context.Background())
	require.NoError(t, err)
	require.Len(t, got.Bookings, 1)
	require.Len(t, got.WaitingList, 1)
	assert.Equal(t, "1", got.Bookings[0].SlotID)
	assert.Equal(t, "Halterofilia", got.WaitingList[0].Activity)
}

func TestBookAndWaitingList(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"token":%q}`, fakeToken("777"))
	})
	mux.HandleFunc("/activities/bookActivityCalendar.php", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "9001", r.PostFormValue("id_activity_calendar"))
		assert.Equal(t, "0", r.PostFormValue("n_guests"))
		fmt.Fprint(w, `{"success":false,"message":"full"}`)
	})
	mux.HandleFunc("/activities/bookWaitingActivityCalendar.php", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true}`)
	})

	s := login(t, newTestClient(t, mux))

	res, err := s.Book(context.Background(), "9001")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "full", res.Message)

	wl, err := s.BookWaitingList(context.Background(), "9001")
	require.NoError(t, err)
	assert.True(t, wl.Success)
}

func TestServerErrorSurfaces(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	})

	_, err := newTestClient(t, mux).Login(context.Background(), "a", "b")
	assert.ErrorContains(t, err, "status 503")
}
