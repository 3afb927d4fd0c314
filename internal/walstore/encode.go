package walstore

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// ErrCorruptRecord is returned by decode when a frame's CRC does not
// match its body, or the frame is too short to contain a header.
var ErrCorruptRecord = errors.New("walstore: corrupted record")

// frame layout: length(u32) | crc32(u32) | kind(u8) | seq(u64) | time_ns(i64) | data
const headerSize = 4 + 4 + 1 + 8 + 8

func encode(r *Record) []byte {
	body := new(bytes.Buffer)
	body.WriteByte(byte(r.Kind))
	_ = binary.Write(body, binary.LittleEndian, r.Seq)
	_ = binary.Write(body, binary.LittleEndian, r.Time.UnixNano())
	body.Write(r.Data)

	bodyBytes := body.Bytes()
	crc := crc32Checksum(bodyBytes)

	out := new(bytes.Buffer)
	_ = binary.Write(out, binary.LittleEndian, uint32(len(bodyBytes)))
	_ = binary.Write(out, binary.LittleEndian, crc)
	out.Write(bodyBytes)
	return out.Bytes()
}

// decodeFrame reads one length-prefixed, CRC-checked frame from the front
// of buf and returns the parsed Record plus the number of bytes consumed.
// ok is false if buf doesn't yet contain a complete frame.
func decodeFrame(buf []byte) (rec *Record, consumed int, ok bool, err error) {
	if len(buf) < 8 {
		return nil, 0, false, nil
	}
	length := binary.LittleEndian.Uint32(buf[0:4])
	crc := binary.LittleEndian.Uint32(buf[4:8])
	total := 8 + int(length)
	if len(buf) < total {
		return nil, 0, false, nil
	}
	body := buf[8:total]
	if !crc32Validate(body, crc) {
		return nil, 0, false, errors.WithStack(ErrCorruptRecord)
	}
	if len(body) < 1+8+8 {
		return nil, 0, false, errors.WithStack(ErrCorruptRecord)
	}

	rec = &Record{
		Kind: RecordKind(body[0]),
		Seq:  binary.LittleEndian.Uint64(body[1:9]),
	}
	timeNs := int64(binary.LittleEndian.Uint64(body[9:17]))
	rec.Time = nanoTime(timeNs)
	rec.Data = append([]byte(nil), body[17:]...)
	return rec, total, true, nil
}
