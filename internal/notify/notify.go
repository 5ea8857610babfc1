package notify

import (
	"fmt"
	"log"
	"os/exec"
)

type Notifier interface {
	RecordingChanged(on bool)
	SongFound(title, body string)
	Error(msg string)
}

// runCommand is replaced in tests.
var runCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

type Desktop struct{}

func (Desktop) send(args ...string) {
	args = append([]string{"-a", "Decibel"}, args...)
	if err := runCommand("notify-send", args...); err != nil {
		log.Printf("notify: failed to send notification: %v", err)
	}
}

func (d Desktop) RecordingChanged(on bool) {
	state := "Stopped"
	if on {
		state = "Started"
	}
	d.send(fmt.Sprintf("Decibel: %s Listening", state))
}

func (d Desktop) SongFound(title, body string) {
	d.send("-i", "audio-x-generic", title, body)
}

func (d Desktop) Error(msg string) {
	d.send("-u", "critical", "Decibel", msg)
}

// Log writes notifications to the standard logger.
type Log struct{}

func (Log) RecordingChanged(on bool) {
	state := "Stopped"
	if on {
		state = "Started"
	}
	log.Printf("Decibel: %s Listening", state)
}

func (Log) SongFound(title, body string) {
	log.Printf("Decibel: %s - %s", title, body)
}

func (Log) Error(msg string) {
	log.Printf("Decibel error: %s", msg)
}

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) RecordingChanged(on bool)     {}
func (Nop) SongFound(title, body string) {}
func (Nop) Error(msg string)             {}

// FromType maps the notifications.type config value to a Notifier.
// Unknown values fall back to desktop notifications.
func FromType(t string) Notifier {
	switch t {
	case "log":
		return Log{}
	case "none":
		return Nop{}
	default:
		return Desktop{}
	}
}
