package nubapp

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/example/wod-scheduler/internal/booking"
)

// apiEntry covers slots, bookings and waiting-list entries. The API is
// inconsistent about field names across endpoints, so both variants are
// decoded and coalesced. The calendar id shows up as a number or a
// string depending on backend version.
type apiEntry struct {
	StartTimestamp string          `json:"start_timestamp"`
	Start          string          `json:"start"`
	EndTimestamp   string          `json:"end_timestamp"`
	End            string          `json:"end"`
	ID             json.RawMessage `json:"id_activity_calendar"`
	NameActivity   string          `json:"name_activity"`
	Name           string          `json:"name"`
	NInscribed     *int            `json:"n_inscribed"`
	NCapacity      *int            `json:"n_capacity"`
}

func coalesce(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func (e apiEntry) start() string { return coalesce(e.StartTimestamp, e.Start) }
func (e apiEntry) end() string   { return coalesce(e.EndTimestamp, e.End) }
func (e apiEntry) name() string  { return coalesce(e.NameActivity, e.Name) }
func (e apiEntry) id() string    { return trimQuotes(strings.TrimSpace(string(e.ID))) }

func (e apiEntry) slot() booking.Slot {
	return booking.Slot{
		Start:     e.start(),
		End:       e.end(),
		ID:        e.id(),
		Name:      e.name(),
		Inscribed: e.NInscribed,
		Capacity:  e.NCapacity,
	}
}

func (e apiEntry) booking() booking.Booking {
	return booking.Booking{
		Start:     e.start(),
		End:       e.end(),
		Activity:  e.name(),
		SlotID:    e.id(),
		Inscribed: e.NInscribed,
		Capacity:  e.NCapacity,
	}
}

// decodeSlots handles the calendar envelope, which is one of:
//
//	{"data": {"activities_calendar": [...]}}
//	{"data": {"<date>": [...]}}
//	{"data": [...]} or a bare array
func decodeSlots(body []byte) ([]booking.Slot, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	data := json.RawMessage(body)
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Data) > 0 {
		data = envelope.Data
	}

	var arr []apiEntry
	if err := json.Unmarshal(data, &arr); err != nil {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, fmt.Errorf("parse slots payload: %w", err)
		}
		raw, ok := obj["activities_calendar"]
		if !ok {
			keys := make([]string, 0, len(obj))
			for k := range obj {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			if len(keys) == 0 {
				return nil, nil
			}
			raw = obj[keys[0]]
		}
		if err := json.Unmarshal(raw, &arr); err != nil {
			return nil, fmt.Errorf("parse slots array: %w", err)
		}
	}

	slots := make([]booking.Slot, 0, len(arr))
	for _, e := range arr {
		slots = append(slots, e.slot())
	}
	return slots, nil
}

func decodeBookings(body []byte) (booking.Bookings, error) {
	var resp struct {
		Data struct {
			Bookings      []apiEntry `json:"bookings"`
			InWaitingList []apiEntry `json:"in_waiting_list"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return booking.Bookings{}, fmt.Errorf("parse bookings payload: %w", err)
	}

	out := booking.Bookings{}
	for _, e := range resp.Data.Bookings {
		out.Bookings = append(out.Bookings, e.booking())
	}
	for _, e := range resp.Data.InWaitingList {
		out.WaitingList = append(out.WaitingList, e.booking())
	}
	return out, nil
}
