// Package main is the quill command line client: a duplex, turn-based
// voice conversation with a remote conversational audio model.
//
// Usage:
//
//	go run ./cmd/quill
//
// Environment variables:
//
//	GEMINI_API_KEY - Required
//	QUILL_MODEL    - Optional model override
//	QUILL_VOICE    - Optional prebuilt voice name
//	LOG_LEVEL      - debug, info, warn, error (default: warn)
//
// Controls:
//
//	m           - Toggle the microphone (hold-to-talk by toggling)
//	/t <text>   - Send a typed message
//	q           - Quit
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/quillvoice/quill/pkg/core/live"
	"github.com/quillvoice/quill/pkg/core/playback"
)

func main() {
	_ = godotenv.Load()

	logger := newLogger()
	slog.SetDefault(logger)

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "GEMINI_API_KEY required")
		os.Exit(1)
	}

	cfg := live.DefaultSessionConfig()
	cfg.APIKey = apiKey
	cfg.Logger = logger
	if model := os.Getenv("QUILL_MODEL"); model != "" {
		cfg.Model = model
	}
	if voice := os.Getenv("QUILL_VOICE"); voice != "" {
		cfg.Voice = voice
	}
	cfg.SystemInstruction = "You are in a live voice conversation. Keep replies short and conversational."

	device, err := playback.NewOtoDevice(cfg.OutputSampleRate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open speaker: %v\n", err)
		os.Exit(1)
	}
	scheduler := playback.NewScheduler(device, cfg.OutputSampleRate, logger)

	session := live.NewSession(cfg, live.Deps{
		Player: live.NewSchedulerPlayer(scheduler),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		session.Close()
		cancel()
	}()

	fmt.Println("quill - live voice conversation")
	fmt.Println()
	fmt.Println("  m           toggle microphone")
	fmt.Println("  /t <text>   send a typed message")
	fmt.Println("  q           quit")
	fmt.Println()

	if err := session.Connect(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}

	go printEvents(session)

	micOn := false
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch {
		case strings.EqualFold(input, "q"):
			session.Close()
			return
		case strings.EqualFold(input, "m"):
			micOn = !micOn
			session.SetMicrophone(micOn)
			if micOn {
				fmt.Println("[MIC] on - speak now, 'm' again when done")
			} else {
				fmt.Println("[MIC] off")
			}
		case strings.HasPrefix(input, "/t "):
			text := strings.TrimPrefix(input, "/t ")
			session.SendText(text)
			fmt.Printf("[SENT] %s\n", text)
		default:
			fmt.Println("[INFO] Commands: m, /t <text>, q")
		}
	}

	session.Close()
}

// printEvents renders the session event stream until it ends.
func printEvents(session *live.Session) {
	for event := range session.Events() {
		switch e := event.(type) {
		case *live.ModeChangedEvent:
			fmt.Printf("[MODE] %s -> %s\n", e.From, e.To)
		case *live.VolumeEvent:
			fmt.Printf("\r[LEVEL] %s", volumeBar(e.Level))
		case *live.TranscriptEvent:
			fmt.Printf("\n[MODEL] %s\n", e.Text)
		case *live.InterruptedEvent:
			fmt.Println("\n[MODEL] (interrupted)")
		case *live.TurnCompleteEvent:
			fmt.Println("[MODEL] (turn complete)")
		case *live.ErrorEvent:
			fmt.Printf("\n[ERROR] %s: %s\n", e.Code, e.Message)
		case *live.ClosedEvent:
			fmt.Printf("\n[SESSION] closed: %s\n", e.Reason)
		}
	}
}

// volumeBar renders a 20-step input level meter.
func volumeBar(level float64) string {
	const width = 20
	filled := int(level * width)
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
