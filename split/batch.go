// Copyright 2023 Sneller, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package split

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/SnellerInc/partsplit/compr"
	"github.com/SnellerInc/partsplit/ion"

	"golang.org/x/crypto/blake2b"
)

// A batch file is laid out as
//
//	magic[4] version[1] len(algo)[1] algo rawsize[uvarint] payload
//
// where payload is (optionally compressed) ion:
// a BVM, a symbol table, and one list of splits
// encoded with Encode.
const (
	batchMagic   = "SPLB"
	batchVersion = 1

	// upper bound on the decompressed
	// size of a batch we are willing to allocate
	maxBatchSize = 1 << 26

	// upper bound on rawsize / len(compressed);
	// the slack admits tiny batches whose
	// framing overhead dominates
	maxBatchRatio = 256
	ratioSlack    = 4096
)

var errBadBatch = errors.New("malformed split batch")

// Batch is an ordered list of splits
// produced by a single enumeration.
type Batch struct {
	Splits []Split

	etag string
}

// ETag returns a hex-encoded digest of the
// uncompressed batch contents. Batches containing
// identically-encoded splits have the same ETag
// regardless of how they were compressed.
func (b *Batch) ETag() string { return b.etag }

func etag(payload []byte) string {
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// EncodeBatch encodes splits as a self-contained
// ion stream and returns the stream along with its ETag.
func EncodeBatch(splits []Encoder) ([]byte, string, error) {
	var st ion.Symtab
	var body, out ion.Buffer
	body.BeginList(-1)
	for i := range splits {
		if err := Encode(splits[i], &body, &st); err != nil {
			return nil, "", err
		}
	}
	body.EndList()
	st.Marshal(&out, true)
	payload := append(out.Bytes(), body.Bytes()...)
	return payload, etag(payload), nil
}

// WriteBatch writes splits to w compressed with
// the named algorithm (see compr.Compression).
// An empty algo or "none" writes the batch uncompressed.
// WriteBatch returns the ETag of the batch.
func WriteBatch(w io.Writer, splits []Encoder, algo string) (string, error) {
	if algo == "none" {
		algo = ""
	}
	if len(algo) > 255 {
		return "", fmt.Errorf("split.WriteBatch: algorithm name %q too long", algo)
	}
	payload, tag, err := EncodeBatch(splits)
	if err != nil {
		return "", err
	}
	hdr := make([]byte, 0, len(batchMagic)+2+len(algo)+binary.MaxVarintLen64)
	hdr = append(hdr, batchMagic...)
	hdr = append(hdr, batchVersion, byte(len(algo)))
	hdr = append(hdr, algo...)
	var uv [binary.MaxVarintLen64]byte
	hdr = append(hdr, uv[:binary.PutUvarint(uv[:], uint64(len(payload)))]...)
	if algo != "" {
		comp := compr.Compression(algo)
		if comp == nil {
			return "", fmt.Errorf("split.WriteBatch: unknown compression %q", algo)
		}
		payload = comp.Compress(payload, nil)
	}
	if _, err := w.Write(append(hdr, payload...)); err != nil {
		return "", err
	}
	return tag, nil
}

// ReadBatch reads a batch written by WriteBatch,
// decoding each split with Decode.
func ReadBatch(r io.Reader) (*Batch, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	payload, err := unframe(buf)
	if err != nil {
		return nil, fmt.Errorf("split.ReadBatch: %w", err)
	}
	var st ion.Symtab
	rest, err := st.Unmarshal(payload)
	if err != nil {
		return nil, fmt.Errorf("split.ReadBatch: %w", err)
	}
	lst, rest, err := ion.ReadDatum(&st, rest)
	if err != nil {
		return nil, fmt.Errorf("split.ReadBatch: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("split.ReadBatch: %w: %d trailing bytes", errBadBatch, len(rest))
	}
	b := &Batch{etag: etag(payload)}
	err = lst.UnpackList(func(d ion.Datum) error {
		s, err := Decode(d)
		if err != nil {
			return err
		}
		b.Splits = append(b.Splits, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// unframe validates the batch header and
// returns the decompressed payload
func unframe(buf []byte) ([]byte, error) {
	if len(buf) < len(batchMagic)+2 || string(buf[:len(batchMagic)]) != batchMagic {
		return nil, fmt.Errorf("%w: bad magic", errBadBatch)
	}
	buf = buf[len(batchMagic):]
	if buf[0] != batchVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", errBadBatch, buf[0])
	}
	n := int(buf[1])
	buf = buf[2:]
	if len(buf) < n {
		return nil, fmt.Errorf("%w: truncated header", errBadBatch)
	}
	algo := string(buf[:n])
	buf = buf[n:]
	size, w := binary.Uvarint(buf)
	if w <= 0 {
		return nil, fmt.Errorf("%w: bad size", errBadBatch)
	}
	if size > maxBatchSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit", errBadBatch, size)
	}
	buf = buf[w:]
	if algo == "" {
		if uint64(len(buf)) != size {
			return nil, fmt.Errorf("%w: expected %d bytes, found %d", errBadBatch, size, len(buf))
		}
		return buf, nil
	}
	if size > uint64(len(buf))*maxBatchRatio+ratioSlack {
		return nil, fmt.Errorf("%w: size %d is implausible for %d compressed bytes", errBadBatch, size, len(buf))
	}
	dec := compr.Decompression(algo)
	if dec == nil {
		return nil, fmt.Errorf("%w: unknown compression %q", errBadBatch, algo)
	}
	out := make([]byte, size)
	if err := dec.Decompress(buf, out); err != nil {
		return nil, err
	}
	return out, nil
}
