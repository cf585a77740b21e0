// Package media provides the local outbound tracks and the remote slot output.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	pion "github.com/pion/webrtc/v4"
	pmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
)

const streamID = "warpmeet"

// oggSampleRate is fixed by the Opus spec.
const oggSampleRate = 48000

var ErrMediaUnavailable = errors.New("local media unavailable")

// Source owns the local audio and video tracks. Tracks stay silent unless a
// file was supplied for them.
type Source struct {
	Audio *pion.TrackLocalStaticSample
	Video *pion.TrackLocalStaticSample

	ivf      *ivfreader.IVFReader
	ivfFrame time.Duration
	ogg      *oggreader.OggReader
	files    []io.Closer

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Open creates the local tracks and validates the optional media files.
// Any failure is reported as ErrMediaUnavailable.
func Open(videoPath, audioPath string) (*Source, error) {
	audio, err := pion.NewTrackLocalStaticSample(pion.RTPCodecCapability{MimeType: pion.MimeTypeOpus}, "audio", streamID)
	if err != nil {
		return nil, fmt.Errorf("%w: audio track: %v", ErrMediaUnavailable, err)
	}
	video, err := pion.NewTrackLocalStaticSample(pion.RTPCodecCapability{MimeType: pion.MimeTypeVP8}, "video", streamID)
	if err != nil {
		return nil, fmt.Errorf("%w: video track: %v", ErrMediaUnavailable, err)
	}

	s := &Source{Audio: audio, Video: video}

	if videoPath != "" {
		f, err := os.Open(videoPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMediaUnavailable, err)
		}
		s.files = append(s.files, f)

		reader, header, err := ivfreader.NewWith(f)
		if err != nil {
			s.closeFiles()
			return nil, fmt.Errorf("%w: %s: %v", ErrMediaUnavailable, videoPath, err)
		}
		if header.FourCC != "VP80" {
			s.closeFiles()
			return nil, fmt.Errorf("%w: %s: unsupported codec %q, want VP80", ErrMediaUnavailable, videoPath, header.FourCC)
		}
		s.ivf = reader
		s.ivfFrame = frameDuration(header.TimebaseNumerator, header.TimebaseDenominator)
	}

	if audioPath != "" {
		f, err := os.Open(audioPath)
		if err != nil {
			s.closeFiles()
			return nil, fmt.Errorf("%w: %v", ErrMediaUnavailable, err)
		}
		s.files = append(s.files, f)

		reader, _, err := oggreader.NewWith(f)
		if err != nil {
			s.closeFiles()
			return nil, fmt.Errorf("%w: %s: %v", ErrMediaUnavailable, audioPath, err)
		}
		s.ogg = reader
	}

	return s, nil
}

func frameDuration(num, den uint32) time.Duration {
	if num == 0 || den == 0 {
		return 33 * time.Millisecond
	}
	return time.Duration(float64(num) / float64(den) * float64(time.Second))
}

// Tracks lists the local tracks in the order they are attached to peers.
func (s *Source) Tracks() []pion.TrackLocal {
	return []pion.TrackLocal{s.Audio, s.Video}
}

// Start begins pacing file samples onto the tracks until ctx ends or the files run out.
func (s *Source) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	if s.ivf != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.playVideo(ctx)
		}()
	}
	if s.ogg != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.playAudio(ctx)
		}()
	}
}

func (s *Source) playVideo(ctx context.Context) {
	ticker := time.NewTicker(s.ivfFrame)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, _, err := s.ivf.ParseNextFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Warn("reading video file", "error", err)
			}
			return
		}
		if err := s.Video.WriteSample(pmedia.Sample{Data: frame, Duration: s.ivfFrame}); err != nil {
			slog.Debug("writing video sample", "error", err)
		}
	}
}

func (s *Source) playAudio(ctx context.Context) {
	const pageDuration = 20 * time.Millisecond

	ticker := time.NewTicker(pageDuration)
	defer ticker.Stop()

	var lastGranule uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		page, header, err := s.ogg.ParseNextPage()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Warn("reading audio file", "error", err)
			}
			return
		}

		samples := header.GranulePosition - lastGranule
		lastGranule = header.GranulePosition
		duration := time.Duration(float64(samples) / oggSampleRate * float64(time.Second))

		if err := s.Audio.WriteSample(pmedia.Sample{Data: page, Duration: duration}); err != nil {
			slog.Debug("writing audio sample", "error", err)
		}
	}
}

// Close stops playback and releases the files.
func (s *Source) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.closeFiles()
}

func (s *Source) closeFiles() {
	for _, f := range s.files {
		f.Close()
	}
	s.files = nil
}
