// Package web serves the dashboard: live bookings per user, the
// scheduled-bookings table and the watcher state.
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/wod-scheduler/internal/booking"
	"github.com/example/wod-scheduler/internal/config"
	"github.com/example/wod-scheduler/internal/history"
	"github.com/example/wod-scheduler/internal/scheduler"
	"github.com/example/wod-scheduler/internal/watcher"
)

//go:embed templates/*.html
var fs embed.FS

type Server struct {
	Config   *config.Config
	Provider booking.Provider
	Status   *scheduler.StatusTable
	Watcher  *watcher.Watcher
	History  *history.Store
	Metrics  http.Handler
	Logger   zerolog.Logger

	sessions *sessionManager
}

// userSection is one user's block on the dashboard.
type userSection struct {
	Name        string
	Bookings    []row
	WaitingList []row
	Error       string
}

type row struct {
	Start     string
	End       string
	Name      string
	Occupancy string
}

type pageData struct {
	Title        string
	Flash        string
	Users        []userSection
	Scheduled    []scheduler.Entry
	WatcherCheck string
	Attempts     []history.Attempt
	LoginEnabled bool
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	if s.Metrics != nil {
		mux.Handle("/metrics", s.Metrics)
	}

	dashboard := http.HandlerFunc(s.handleDashboard)
	if s.Config.Dashboard.PasswordHash != "" {
		s.sessions = newSessionManager(s.Config.Dashboard)
		mux.HandleFunc("/login", s.handleLogin)
		mux.HandleFunc("/logout", s.handleLogout)
		mux.Handle("/", s.sessions.require(dashboard))
	} else {
		mux.Handle("/", dashboard)
	}
	return mux
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := pageData{
		Title:        "wodsched",
		Scheduled:    s.Status.Snapshot(),
		LoginEnabled: s.sessions != nil,
	}
	if last, ok := s.Watcher.LastCheck(); ok {
		data.WatcherCheck = last.Format("2006-01-02 15:04:05")
	}
	for _, user := range s.Config.Users {
		data.Users = append(data.Users, s.userSection(r.Context(), user))
	}
	if attempts, err := s.History.Recent(r.Context(), 20); err == nil {
		data.Attempts = attempts
	} else {
		s.Logger.Warn().Err(err).Msg("cannot load attempt history")
	}
	s.render(w, "templates/dashboard.html", data)
}

// userSection fetches one user's bookings live; errors end up in the
// section rather than failing the page.
func (s *Server) userSection(ctx context.Context, user config.User) userSection {
	section := userSection{Name: user.Name}

	sess, err := s.Provider.Login(ctx, user.Login, user.Password)
	if err != nil {
		section.Error = "login failed: " + err.Error()
		return section
	}
	current, err := sess.Bookings(ctx)
	if err != nil {
		section.Error = "cannot fetch bookings: " + err.Error()
		return section
	}

	for _, b := range current.Bookings {
		section.Bookings = append(section.Bookings, bookingRow(b, b.Inscribed, b.Capacity))
	}

	occupancy := occupancyFor(ctx, sess, current.WaitingList, s.Config.Location())
	for _, b := range current.WaitingList {
		var inscribed, capacity *int
		if slot, ok := occupancy[b.SlotID]; ok {
			inscribed, capacity = slot.Inscribed, slot.Capacity
		}
		section.WaitingList = append(section.WaitingList, bookingRow(b, inscribed, capacity))
	}
	return section
}

func bookingRow(b booking.Booking, inscribed, capacity *int) row {
	r := row{Start: b.Start, End: b.End, Name: b.Activity}
	if r.Name == "" {
		r.Name = "?"
	}
	if inscribed != nil && capacity != nil {
		r.Occupancy = fmt.Sprintf("%d/%d", *inscribed, *capacity)
	}
	return r
}

// occupancyFor looks up current slot occupancy for waiting-list
// entries, fetching each referenced date once.
func occupancyFor(ctx context.Context, sess booking.Session, entries []booking.Booking, loc *time.Location) map[string]booking.Slot {
	out := make(map[string]booking.Slot)
	seen := make(map[string]struct{})
	for _, entry := range entries {
		if len(entry.Start) < 10 {
			continue
		}
		ymd := entry.Start[:10]
		if _, dup := seen[ymd]; dup {
			continue
		}
		seen[ymd] = struct{}{}
		date, err := time.ParseInLocation("2006-01-02", ymd, loc)
		if err != nil {
			continue
		}
		slots, err := sess.Slots(ctx, date)
		if err != nil {
			continue
		}
		for _, slot := range slots {
			if slot.ID != "" {
				out[slot.ID] = slot
			}
		}
	}
	return out
}

func (s *Server) render(w http.ResponseWriter, name string, data pageData) {
	t, err := template.ParseFS(fs, "templates/base.html", name)
	if err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "base", data); err != nil {
		s.Logger.Error().Err(err).Msg("render failed")
	}
}

// Start runs the server until ctx is cancelled, then shuts down
// gracefully.
func Start(ctx context.Context, addr string, h http.Handler, logger zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Info().Str("addr", addr).Msg("dashboard listening")
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
