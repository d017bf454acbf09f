package video

import (
	"fmt"
	"io"

	"gocv.io/x/gocv"
)

// FileOpener открывает видео файлы через OpenCV
type FileOpener struct{}

// NewFileOpener создает новый Opener на базе OpenCV
func NewFileOpener() *FileOpener {
	return &FileOpener{}
}

// Open открывает видео файл и считывает его метаданные
func (o *FileOpener) Open(path string) (Source, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpen, path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: %s", ErrOpen, path)
	}

	meta := Metadata{
		FPS:         capture.Get(gocv.VideoCaptureFPS),
		TotalFrames: int(capture.Get(gocv.VideoCaptureFrameCount)),
		Width:       int(capture.Get(gocv.VideoCaptureFrameWidth)),
		Height:      int(capture.Get(gocv.VideoCaptureFrameHeight)),
	}

	return &fileSource{capture: capture, meta: meta}, nil
}

// fileSource источник кадров поверх gocv.VideoCapture
type fileSource struct {
	capture *gocv.VideoCapture
	meta    Metadata
	mat     gocv.Mat
	started bool
}

func (s *fileSource) Metadata() Metadata {
	return s.meta
}

// NextFrame декодирует следующий кадр и копирует его в BGR буфер
func (s *fileSource) NextFrame() (Frame, error) {
	if !s.started {
		s.mat = gocv.NewMat()
		s.started = true
	}

	if ok := s.capture.Read(&s.mat); !ok || s.mat.Empty() {
		return Frame{}, io.EOF
	}

	return Frame{
		Data:   s.mat.ToBytes(),
		Width:  s.mat.Cols(),
		Height: s.mat.Rows(),
	}, nil
}

func (s *fileSource) Close() error {
	if s.started {
		s.mat.Close()
	}
	return s.capture.Close()
}
