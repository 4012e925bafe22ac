// Package otptest captures delivered codes in tests.
package otptest

import (
	"context"
	"regexp"
	"sync"
)

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

type Message struct {
	To, Subject, Body string
}

// Recorder is an otp.Notifier that keeps every message it is given.
type Recorder struct {
	mu   sync.Mutex
	sent []Message
}

func (r *Recorder) Send(ctx context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Message{To: to, Subject: subject, Body: body})
	return nil
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}

// LastCode returns the code in the newest message sent to to.
func (r *Recorder) LastCode(to string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.sent) - 1; i >= 0; i-- {
		if r.sent[i].To == to {
			return codePattern.FindString(r.sent[i].Body)
		}
	}
	return ""
}
