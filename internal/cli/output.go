package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/service/matching"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Runtime failure (store errors, failed units)
	ExitCommandError = 2 // Command error (bad flags, unreadable files, invalid config)
)

// ExitError carries the exit code of a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes results as text lines or JSON documents.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Emit writes v as one JSON document, or text(w) in text mode.
func (f *OutputFormatter) Emit(v any, text func(w io.Writer) error) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(v)
	}
	return text(f.Writer)
}

type outcomeView struct {
	AnnouncementID string  `json:"announcement_id"`
	Pickup         string  `json:"pickup"`
	Dropoff        string  `json:"dropoff"`
	Reward         float64 `json:"reward"`
	Result         string  `json:"result"`
	CourierID      string  `json:"courier_id,omitempty"`
	ETA            int     `json:"eta,omitempty"`
	Candidates     int     `json:"candidates"`
	DurationMS     int64   `json:"duration_ms"`
}

func toOutcomeView(o matching.Outcome) outcomeView {
	v := outcomeView{
		AnnouncementID: o.Announcement.ID,
		Pickup:         o.Announcement.Pickup,
		Dropoff:        o.Announcement.Dropoff,
		Reward:         o.Announcement.Reward,
		Result:         string(o.Result),
		Candidates:     o.Candidates,
		DurationMS:     o.Duration.Milliseconds(),
	}
	if o.Winner != nil {
		v.CourierID = o.Winner.CourierID
		v.ETA = o.Winner.ETA
	}
	return v
}

func writeOutcome(w io.Writer, v outcomeView) error {
	_, err := fmt.Fprintf(w, "%s  %s -> %s  reward=%.2f  result=%s", v.AnnouncementID, v.Pickup, v.Dropoff, v.Reward, v.Result)
	if err != nil {
		return err
	}
	if v.CourierID != "" {
		if _, err := fmt.Fprintf(w, "  courier=%s eta=%d", v.CourierID, v.ETA); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "  candidates=%d  took=%s\n", v.Candidates, time.Duration(v.DurationMS)*time.Millisecond)
	return err
}

func emitOutcomes(f *OutputFormatter, outcomes []matching.Outcome) error {
	views := make([]outcomeView, 0, len(outcomes))
	for _, o := range outcomes {
		views = append(views, toOutcomeView(o))
	}
	return f.Emit(views, func(w io.Writer) error {
		for _, v := range views {
			if err := writeOutcome(w, v); err != nil {
				return err
			}
		}
		return nil
	})
}

type selectionView struct {
	ID             string    `json:"id"`
	AnnouncementID string    `json:"announcement_id"`
	CourierID      string    `json:"courier_id"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

func emitSelection(f *OutputFormatter, s domain.Selection) error {
	v := selectionView{
		ID:             s.ID,
		AnnouncementID: s.AnnouncementID,
		CourierID:      s.CourierID,
		Status:         string(s.Status),
		CreatedAt:      s.CreatedAt,
	}
	return f.Emit(v, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "%s  announcement=%s  courier=%s  %s\n",
			v.CreatedAt.Format(time.RFC3339), v.AnnouncementID, v.CourierID, v.Status)
		return err
	})
}

type notificationView struct {
	ID             string    `json:"id"`
	CourierID      string    `json:"courier_id"`
	Type           string    `json:"type"`
	AnnouncementID string    `json:"announcement_id"`
	CreatedAt      time.Time `json:"created_at"`
}

func emitNotification(f *OutputFormatter, n domain.Notification) error {
	v := notificationView{
		ID:             n.ID,
		CourierID:      n.CourierID,
		Type:           string(n.Type),
		AnnouncementID: n.AnnouncementID,
		CreatedAt:      n.CreatedAt,
	}
	return f.Emit(v, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "%s  %s  courier=%s  announcement=%s\n",
			v.CreatedAt.Format(time.RFC3339), v.Type, v.CourierID, v.AnnouncementID)
		return err
	})
}
