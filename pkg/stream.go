package decoder

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

type decoderState int

const (
	expectHeader decoderState = iota
	expectPayload
	endOfStream
	failed
)

func (s decoderState) String() string {
	switch s {
	case expectHeader:
		return "ExpectHeader"
	case expectPayload:
		return "ExpectPayload"
	case endOfStream:
		return "EndOfStream"
	case failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// StreamDecoder splits a TPX3 byte stream into chunks and decodes their
// payload words. It reads forward only; to start over, reposition or reopen
// the underlying reader and build a new decoder.
type StreamDecoder struct {
	reader      *bufio.Reader
	options     DecoderOptions
	state       decoderState
	offset      int64
	buffers     uint32
	remaining   int
	err         error
	word        [WORD_SIZE]byte
	diagnostics Diagnostics
	clock       GlobalClock
}

func NewStreamDecoder(r io.Reader, options DecoderOptions) *StreamDecoder {
	return &StreamDecoder{
		reader:  bufio.NewReaderSize(r, 1<<16),
		options: options,
		state:   expectHeader,
	}
}

// Offset returns the number of bytes consumed so far.
func (d *StreamDecoder) Offset() int64 {
	return d.offset
}

func (d *StreamDecoder) Diagnostics() Diagnostics {
	return d.diagnostics
}

// Clock returns the global clock built from the global time words seen so
// far.
func (d *StreamDecoder) Clock() GlobalClock {
	return d.clock
}

// Err returns the fatal error that stopped the decoder, if any.
func (d *StreamDecoder) Err() error {
	return d.err
}

func (d *StreamDecoder) fail(err error) error {
	logger.Error(fmt.Sprintf("stream decoder stopped in state %v: %v", d.state, err))
	d.state = failed
	d.err = err
	return err
}

func (d *StreamDecoder) readWord() (uint64, int, error) {
	n, err := io.ReadFull(d.reader, d.word[:])
	d.diagnostics.BytesRead += int64(n)
	if err != nil {
		return 0, n, err
	}
	d.offset += WORD_SIZE
	return binary.LittleEndian.Uint64(d.word[:]), n, nil
}

// Next decodes the next chunk. It returns io.EOF when the stream ends
// cleanly on a chunk boundary. Any other error is fatal and is returned
// again by every later call.
func (d *StreamDecoder) Next() (*Buffer, error) {
	switch d.state {
	case endOfStream:
		return nil, io.EOF
	case failed:
		return nil, d.err
	}

	start := time.Now()
	buffer, err := d.readChunk()
	d.diagnostics.UnpackingTime += time.Since(start)
	if err != nil {
		return nil, err
	}

	if d.options.SortSignals {
		start := time.Now()
		buffer.SortByToa()
		d.diagnostics.SortingTime += time.Since(start)
	}
	return buffer, nil
}

func (d *StreamDecoder) readChunk() (*Buffer, error) {
	headerOffset := d.offset
	word, n, err := d.readWord()
	if err != nil {
		switch {
		case err == io.EOF:
			d.state = endOfStream
			if d.options.Verbosity > 1 {
				message := fmt.Sprintf("End of stream after %d buffers, %d bytes", d.buffers, d.offset)
				logger.Info(message, "streamDecoder")
			}
			return nil, io.EOF
		case errors.Is(err, io.ErrUnexpectedEOF):
			return nil, d.fail(&ErrTruncatedStream{Offset: headerOffset, Got: n})
		default:
			return nil, d.fail(fmt.Errorf("error reading chunk header at byte %d: %w", headerOffset, err))
		}
	}

	if !IsChunkHeader(word) {
		return nil, d.fail(&ErrFormat{Offset: headerOffset, Word: word, Reason: "TPX3 magic not found"})
	}
	header := ParseHeader(word)
	if header.BufferSize%WORD_SIZE != 0 {
		reason := fmt.Sprintf("buffer size %d is not a multiple of %d", header.BufferSize, WORD_SIZE)
		return nil, d.fail(&ErrFormat{Offset: headerOffset, Word: word, Reason: reason})
	}

	d.buffers++
	d.state = expectPayload
	d.remaining = header.Words()
	if d.options.Verbosity > 2 {
		message := fmt.Sprintf("Buffer %d at byte %d: %d words, chip %d, mode %d",
			d.buffers, headerOffset, d.remaining, header.ChipNumber, header.Mode)
		logger.Info(message, "streamDecoder")
	}

	buffer := &Buffer{
		Number:  d.buffers,
		Offset:  headerOffset,
		Header:  header,
		Signals: make([]Signal, d.remaining),
	}
	for i := range buffer.Signals {
		wordOffset := d.offset
		word, n, err := d.readWord()
		if err != nil {
			if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, d.fail(&ErrTruncatedStream{Offset: wordOffset, Got: n})
			}
			return nil, d.fail(fmt.Errorf("error reading payload word at byte %d: %w", wordOffset, err))
		}
		signal, err := ParsePacket(word, header.ChipNumber, d.options.ChipLayout, buffer.Number)
		if err != nil {
			var unknown *ErrUnknownPacketType
			if errors.As(err, &unknown) {
				unknown.Offset = wordOffset
			}
			return nil, d.fail(err)
		}
		if signal.Type == GlobalTimeSignal {
			d.clock.Update(ParseGlobalTime(word))
		}
		buffer.Signals[i] = signal
		d.diagnostics.count(signal.Type)
		d.remaining--
	}

	d.diagnostics.Buffers++
	d.state = expectHeader
	return buffer, nil
}

// DecodeAll decodes the whole stream and concatenates the buffers. Time
// order is only guaranteed inside each buffer, and only with SortSignals.
func DecodeAll(r io.Reader, options DecoderOptions) ([]Signal, error) {
	d := NewStreamDecoder(r, options)
	signals := make([]Signal, 0)
	for {
		buffer, err := d.Next()
		if err == io.EOF {
			return signals, nil
		}
		if err != nil {
			return signals, err
		}
		signals = append(signals, buffer.Signals...)
	}
}
