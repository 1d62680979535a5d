// Package stream encodes accepted chips as stream records and appends them
// to per-chip output streams.
//
// A stream record is one line:
//
//	<event_id> TAB <ncluster> [TAB <word>]... NEWLINE
//
// Records for a chip go to stream_<chip>.txt in the output directory.
// Field order is fixed and no escaping is performed.
package stream

import (
	"strconv"

	"github.com/pithecene-io/chipstream/types"
)

// FilePrefix and FileSuffix bracket the chip identifier in stream file names.
const (
	FilePrefix = "stream_"
	FileSuffix = ".txt"
)

// Record is one accepted (event, chip) pair.
type Record struct {
	EventID   uint32             `json:"event_id"`
	NClusters int                `json:"ncluster"`
	Words     []types.StreamWord `json:"words"`
}

// Encode renders the record as a single line.
func Encode(rec Record) []byte {
	// "4294967295\t" plus up to 6 bytes per word
	buf := make([]byte, 0, 24+6*len(rec.Words))
	return AppendEncoded(buf, rec)
}

// AppendEncoded appends the encoded record to buf.
func AppendEncoded(buf []byte, rec Record) []byte {
	buf = strconv.AppendUint(buf, uint64(rec.EventID), 10)
	buf = append(buf, '\t')
	buf = strconv.AppendInt(buf, int64(rec.NClusters), 10)
	for _, w := range rec.Words {
		buf = append(buf, '\t')
		buf = strconv.AppendUint(buf, uint64(w), 10)
	}
	return append(buf, '\n')
}

// FileName returns the stream file name for a chip.
func FileName(chip types.ChipID) string {
	return FilePrefix + chip.String() + FileSuffix
}
