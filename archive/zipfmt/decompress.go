package zipfmt

import (
	"errors"
	"io"
	"sync"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// decoderPool manages reusable zstd decoders for zip method 93 entries.
type decoderPool struct {
	pool             sync.Pool
	maxDecoderMemory uint64
	concurrency      int
}

func newDecoderPool(maxMemory uint64, concurrency int) *decoderPool {
	p := &decoderPool{
		maxDecoderMemory: maxMemory,
		concurrency:      concurrency,
	}
	p.pool.New = func() any {
		dec, err := p.newDecoder(nil)
		if err != nil {
			return nil
		}
		return dec
	}
	return p
}

// get returns a decoder reading from r and its release function.
func (p *decoderPool) get(r io.Reader) (*zstd.Decoder, func(), error) {
	dec, ok := p.pool.Get().(*zstd.Decoder)
	if !ok || dec == nil {
		// Pool's New failed or returned nothing, try directly.
		newDec, err := p.newDecoder(r)
		if err != nil {
			return nil, nil, err
		}
		return newDec, newDec.Close, nil
	}
	if err := dec.Reset(r); err != nil {
		dec.Close()
		newDec, err := p.newDecoder(r)
		if err != nil {
			return nil, nil, err
		}
		return newDec, newDec.Close, nil
	}
	return dec, func() {
		_ = dec.Reset(nil) //nolint:errcheck // clearing state before pool return
		p.pool.Put(dec)
	}, nil
}

func (p *decoderPool) newDecoder(r io.Reader) (*zstd.Decoder, error) {
	opts := []zstd.DOption{zstd.WithDecoderConcurrency(p.concurrency)}
	if p.maxDecoderMemory != 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(p.maxDecoderMemory))
	}
	return zstd.NewReader(r, opts...)
}

// decompressor adapts the pool to zip.Decompressor.
func (p *decoderPool) decompressor() zip.Decompressor {
	return func(r io.Reader) io.ReadCloser {
		dec, release, err := p.get(r)
		if err != nil {
			return &pooledReader{err: errors.Join(zip.ErrAlgorithm, err)}
		}
		return &pooledReader{dec: dec, release: release}
	}
}

type pooledReader struct {
	dec     *zstd.Decoder
	release func()
	err     error
}

func (r *pooledReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if r.dec == nil {
		return 0, io.ErrClosedPipe
	}
	return r.dec.Read(p)
}

func (r *pooledReader) Close() error {
	if r.release != nil {
		r.release()
		r.release = nil
	}
	r.dec = nil
	return nil
}
