package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Camera hands out exclusive frame streams.
type Camera interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream yields frames until closed. Close releases the device.
type Stream interface {
	Frame(ctx context.Context) (image.Image, error)
	Close() error
}

// DirectoryCamera replays the images in a directory as frames, one per
// call and in name order, wrapping around at the end. It stands in for a
// capture device on hosts without one.
type DirectoryCamera struct {
	Dir string

	mu   sync.Mutex
	open bool
}

// NewDirectoryCamera creates a DirectoryCamera over dir.
func NewDirectoryCamera(dir string) *DirectoryCamera {
	return &DirectoryCamera{Dir: dir}
}

func (c *DirectoryCamera) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrPermission):
			return nil, &DeviceError{Reason: ReasonPermissionDenied, Err: err}
		case errors.Is(err, fs.ErrNotExist):
			return nil, &DeviceError{Reason: ReasonNoDevice, Err: err}
		}
		return nil, &DeviceError{Reason: ReasonUnsupported, Err: err}
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			files = append(files, filepath.Join(c.Dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, &DeviceError{Reason: ReasonNoDevice, Err: fmt.Errorf("no frames in %s", c.Dir)}
	}
	slices.Sort(files)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open {
		return nil, &DeviceError{Reason: ReasonDeviceBusy}
	}
	c.open = true

	return &directoryStream{camera: c, files: files}, nil
}

func (c *DirectoryCamera) release() {
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
}

type directoryStream struct {
	camera *DirectoryCamera
	files  []string

	mu     sync.Mutex
	next   int
	closed bool
}

func (s *directoryStream) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	path := s.files[s.next%len(s.files)]
	s.next++
	s.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, &DeviceError{Reason: ReasonNoDevice, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &DeviceError{Reason: ReasonUnsupported, Err: err}
	}
	return img, nil
}

func (s *directoryStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.camera.release()
	return nil
}
