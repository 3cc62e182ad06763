package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// MalgoCapturer implements the Capturer interface using malgo
type MalgoCapturer struct {
	config       CaptureConfig
	device       *malgo.Device
	malgoContext *malgo.AllocatedContext
	samples      chan AudioSample
	errors       chan error
	running      bool
	mu           sync.RWMutex
	stopChan     chan struct{}
	wg           sync.WaitGroup
}

// NewMalgoCapturer creates a new malgo-based audio capturer
func NewMalgoCapturer(config CaptureConfig) (*MalgoCapturer, error) {
	bufSize := config.SampleBufferSize
	if bufSize <= 0 {
		bufSize = 10
	}
	return &MalgoCapturer{
		config:   config,
		samples:  make(chan AudioSample, bufSize),
		errors:   make(chan error, 10),
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins audio capture
func (m *MalgoCapturer) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("capturer is already running")
	}
	m.running = true
	m.mu.Unlock()

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		m.setStopped()
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	m.malgoContext = malgoCtx

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16 // 16-bit signed integer
	deviceConfig.Capture.Channels = m.config.Channels
	deviceConfig.SampleRate = m.config.SampleRate
	deviceConfig.PeriodSizeInFrames = m.config.BufferFrames

	// Data callback runs on malgo's thread; copy before handing off.
	var callbacks malgo.DeviceCallbacks
	callbacks.Data = func(pOutputSample, pInputSamples []byte, framecount uint32) {
		dataCopy := make([]byte, len(pInputSamples))
		copy(dataCopy, pInputSamples)

		sample := AudioSample{
			Data:      dataCopy,
			Timestamp: time.Now(),
			Frames:    framecount,
		}

		select {
		case m.samples <- sample:
		default:
			// Consumer is behind; drop the chunk rather than block capture.
			select {
			case m.errors <- fmt.Errorf("sample buffer overflow, dropping frames"):
			default:
			}
		}
	}

	device, err := malgo.InitDevice(m.malgoContext.Context, deviceConfig, callbacks)
	if err != nil {
		m.malgoContext.Uninit()
		m.malgoContext.Free()
		m.setStopped()
		return fmt.Errorf("failed to initialize device: %w", err)
	}
	m.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		m.malgoContext.Uninit()
		m.malgoContext.Free()
		m.setStopped()
		return fmt.Errorf("failed to start device: %w", err)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		select {
		case <-ctx.Done():
			m.Stop()
		case <-m.stopChan:
			return
		}
	}()

	return nil
}

// Stop stops audio capture
func (m *MalgoCapturer) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.mu.Unlock()

	close(m.stopChan)

	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			return fmt.Errorf("failed to stop device: %w", err)
		}
		m.device.Uninit()
	}

	if m.malgoContext != nil {
		m.malgoContext.Uninit()
		m.malgoContext.Free()
	}

	m.wg.Wait()

	close(m.samples)
	close(m.errors)

	return nil
}

// Samples returns a channel that receives audio samples
func (m *MalgoCapturer) Samples() <-chan AudioSample {
	return m.samples
}

// Errors returns a channel that receives capture errors
func (m *MalgoCapturer) Errors() <-chan error {
	return m.errors
}

// IsRunning returns true if capture is currently active
func (m *MalgoCapturer) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *MalgoCapturer) setStopped() {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
}
