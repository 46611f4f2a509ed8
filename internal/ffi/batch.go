package ffi

import (
	"encoding/binary"

	"github.com/cosmosquery/crosspartition/internal/request"
	"github.com/cosmosquery/crosspartition/internal/wire"
)

// encodeRequestBatch renders reqs as a count-prefixed sequence of
// internal/wire frames: a uint32 count, then for each request a uint32
// length followed by its EncodeDataRequest bytes. This is the binary
// counterpart to runResult's JSON requests field, for a caller that wired
// query_pipeline_provide_data_binary instead of the JSON path.
func encodeRequestBatch(reqs []request.DataRequest) ([]byte, error) {
	frames := make([][]byte, len(reqs))
	total := 4
	for i, r := range reqs {
		r := r
		frame, err := wire.EncodeDataRequest(&r)
		if err != nil {
			return nil, err
		}
		frames[i] = frame
		total += 4 + len(frame)
	}

	out := make([]byte, total)
	binary.LittleEndian.PutUint32(out, uint32(len(reqs)))
	offset := 4
	for _, frame := range frames {
		binary.LittleEndian.PutUint32(out[offset:], uint32(len(frame)))
		offset += 4
		copy(out[offset:], frame)
		offset += len(frame)
	}
	return out, nil
}
