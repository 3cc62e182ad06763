package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/emmett/hark/internal/audio"
	"github.com/emmett/hark/internal/session"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	serverURL    = flag.String("url", "ws://localhost:2700/recognize", "Recognition server websocket URL")
	audioDevice  = flag.String("device", "", "Audio input device name (use -list-devices to see available devices)")
	listDevices  = flag.Bool("list-devices", false, "List all available audio input devices")
	pcmFile      = flag.String("file", "", "Stream a raw 16kHz mono 16-bit PCM file instead of capturing")
	chunkMs      = flag.Int("chunk-ms", 30, "Chunk size in milliseconds for file streaming")
	autoStop     = flag.Bool("auto-stop", true, "End the utterance automatically after a silence pause")
	vadThreshold = flag.Float64("vad-threshold", 0.01, "VAD energy threshold (lower = more sensitive)")
	showVersion  = flag.Bool("version", false, "Show version information")
)

const sampleRate = 16000

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Hark Client v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	if *listDevices {
		devices, err := audio.ListDevices()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for _, device := range devices {
			fmt.Println(device)
		}
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", *serverURL, err)
	}
	defer conn.Close()

	// One reader for the connection; the server sends a single JSON event
	// per end-of-stream sentinel.
	events := make(chan session.Event, 1)
	go func() {
		defer close(events)
		for {
			var evt session.Event
			if err := conn.ReadJSON(&evt); err != nil {
				return
			}
			events <- evt
		}
	}()

	if *pcmFile != "" {
		return streamFile(conn, events)
	}
	return streamMicrophone(conn, events)
}

// streamFile sends a raw PCM file in fixed-size chunks followed by the
// end-of-stream sentinel and prints the transcript.
func streamFile(conn *websocket.Conn, events <-chan session.Event) error {
	data, err := os.ReadFile(*pcmFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", *pcmFile, err)
	}

	chunkBytes := sampleRate * 2 * *chunkMs / 1000
	if chunkBytes <= 0 {
		return fmt.Errorf("invalid chunk size: %dms", *chunkMs)
	}

	for start := 0; start < len(data); start += chunkBytes {
		end := start + chunkBytes
		if end > len(data) {
			end = len(data)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, data[start:end]); err != nil {
			return fmt.Errorf("failed to send audio: %w", err)
		}
	}

	if err := sendSentinel(conn); err != nil {
		return err
	}

	evt, err := waitForTranscript(events)
	if err != nil {
		return err
	}
	fmt.Println(evt.Text)
	return nil
}

// streamMicrophone captures live audio and streams it until interrupted.
// With auto-stop enabled, every silence pause flushes the current utterance
// and the transcript is printed while capture keeps running.
func streamMicrophone(conn *websocket.Conn, events <-chan session.Event) error {
	captureConfig := audio.DefaultConfig()
	if *audioDevice != "" {
		device, err := audio.FindDeviceByName(*audioDevice)
		if err != nil {
			return err
		}
		captureConfig.DeviceID = device.ID
		fmt.Printf("Using device: %s\n", device.Name)
	}

	capturer, err := audio.NewCapturer(captureConfig)
	if err != nil {
		return fmt.Errorf("failed to create capturer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := capturer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}
	defer capturer.Stop()

	vad := audio.NewVAD(audio.VADConfig{
		EnergyThreshold: *vadThreshold,
		SilenceFrames:   audio.DefaultVADConfig().SilenceFrames,
		SpeechFrames:    audio.DefaultVADConfig().SpeechFrames,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	fmt.Println("Listening... (Ctrl+C to stop)")

	for {
		select {
		case <-sigChan:
			if err := sendSentinel(conn); err != nil {
				return err
			}
			evt, err := waitForTranscript(events)
			if err != nil {
				return err
			}
			fmt.Println(evt.Text)
			return nil

		case evt, ok := <-events:
			if !ok {
				return fmt.Errorf("connection closed by server")
			}
			fmt.Println(evt.Text)

		case sample, ok := <-capturer.Samples():
			if !ok {
				return nil
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, sample.Data); err != nil {
				return fmt.Errorf("failed to send audio: %w", err)
			}
			if *autoStop {
				if _, _, ended := vad.ProcessFrame(sample.Data); ended {
					if err := sendSentinel(conn); err != nil {
						return err
					}
				}
			}

		case captureErr := <-capturer.Errors():
			fmt.Fprintf(os.Stderr, "Warning: %v\n", captureErr)
		}
	}
}

// sendSentinel sends the zero-length frame that asks the server to flush
func sendSentinel(conn *websocket.Conn) error {
	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{}); err != nil {
		return fmt.Errorf("failed to send end-of-stream: %w", err)
	}
	return nil
}

func waitForTranscript(events <-chan session.Event) (session.Event, error) {
	select {
	case evt, ok := <-events:
		if !ok {
			return session.Event{}, fmt.Errorf("connection closed by server")
		}
		return evt, nil
	case <-time.After(10 * time.Second):
		return session.Event{}, fmt.Errorf("timed out waiting for transcript")
	}
}
