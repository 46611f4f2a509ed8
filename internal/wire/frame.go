// Package wire frames request.DataRequest and request.QueryResponse for
// transports that need a length-delimited byte encoding rather than Go
// struct values — a loopback pipe in tests, or a real IPC channel an
// embedder chooses to put between its process and a gateway proxy.
package wire

import (
	"encoding/binary"
	"errors"

	"github.com/cosmosquery/crosspartition/internal/request"
)

var (
	ErrInvalidFrame  = errors.New("wire: invalid frame format")
	ErrFrameTooLarge = errors.New("wire: frame too large")
)

const (
	idSize         = 8
	strLenSize     = 4
	boolSize       = 1
	continuationSz = 4

	MaxFrameSize = 16 * 1024 * 1024
)

// EncodeDataRequest renders r as a length-delimited frame: ID, then each
// string field prefixed by its byte length, then the IncludeParameters flag.
func EncodeDataRequest(r *request.DataRequest) ([]byte, error) {
	size := uint64(idSize)
	size += strLenSize + uint64(len(r.PartitionKeyRangeID))
	size += strLenSize + uint64(len(r.Continuation))
	size += strLenSize + uint64(len(r.Query))
	size += boolSize

	if size > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}

	buf := make([]byte, size)
	offset := 0

	binary.LittleEndian.PutUint64(buf[offset:], r.ID)
	offset += idSize

	offset = putString(buf, offset, r.PartitionKeyRangeID)
	offset = putString(buf, offset, r.Continuation)
	offset = putString(buf, offset, r.Query)

	if r.IncludeParameters {
		buf[offset] = 1
	}

	return buf, nil
}

// DecodeDataRequest parses a frame produced by EncodeDataRequest.
func DecodeDataRequest(data []byte) (*request.DataRequest, error) {
	if len(data) < idSize {
		return nil, ErrInvalidFrame
	}

	r := &request.DataRequest{}
	offset := 0

	r.ID = binary.LittleEndian.Uint64(data[offset:])
	offset += idSize

	var err error
	r.PartitionKeyRangeID, offset, err = getString(data, offset)
	if err != nil {
		return nil, err
	}
	r.Continuation, offset, err = getString(data, offset)
	if err != nil {
		return nil, err
	}
	r.Query, offset, err = getString(data, offset)
	if err != nil {
		return nil, err
	}

	if offset >= len(data) {
		return nil, ErrInvalidFrame
	}
	r.IncludeParameters = data[offset] != 0

	return r, nil
}

// EncodeQueryResponse renders resp as a length-delimited frame: RequestID,
// PartitionKeyRangeID, Data (length-prefixed), then Continuation.
func EncodeQueryResponse(resp *request.QueryResponse) ([]byte, error) {
	size := uint64(idSize)
	size += strLenSize + uint64(len(resp.PartitionKeyRangeID))
	size += continuationSz + uint64(len(resp.Data))
	size += strLenSize + uint64(len(resp.Continuation))

	if size > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}

	buf := make([]byte, size)
	offset := 0

	binary.LittleEndian.PutUint64(buf[offset:], resp.RequestID)
	offset += idSize

	offset = putString(buf, offset, resp.PartitionKeyRangeID)

	binary.LittleEndian.PutUint32(buf[offset:], uint32(len(resp.Data)))
	offset += continuationSz
	copy(buf[offset:], resp.Data)
	offset += len(resp.Data)

	putString(buf, offset, resp.Continuation)

	return buf, nil
}

// DecodeQueryResponse parses a frame produced by EncodeQueryResponse.
func DecodeQueryResponse(data []byte) (*request.QueryResponse, error) {
	if len(data) < idSize {
		return nil, ErrInvalidFrame
	}

	resp := &request.QueryResponse{}
	offset := 0

	resp.RequestID = binary.LittleEndian.Uint64(data[offset:])
	offset += idSize

	var err error
	resp.PartitionKeyRangeID, offset, err = getString(data, offset)
	if err != nil {
		return nil, err
	}

	if offset+continuationSz > len(data) {
		return nil, ErrInvalidFrame
	}
	dataLen := binary.LittleEndian.Uint32(data[offset:])
	offset += continuationSz
	if offset+int(dataLen) > len(data) {
		return nil, ErrInvalidFrame
	}
	if dataLen > 0 {
		resp.Data = make([]byte, dataLen)
		copy(resp.Data, data[offset:offset+int(dataLen)])
		offset += int(dataLen)
	}

	resp.Continuation, _, err = getString(data, offset)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func putString(buf []byte, offset int, s string) int {
	binary.LittleEndian.PutUint32(buf[offset:], uint32(len(s)))
	offset += strLenSize
	copy(buf[offset:], s)
	return offset + len(s)
}

func getString(data []byte, offset int) (string, int, error) {
	if offset+strLenSize > len(data) {
		return "", 0, ErrInvalidFrame
	}
	n := binary.LittleEndian.Uint32(data[offset:])
	offset += strLenSize
	if offset+int(n) > len(data) {
		return "", 0, ErrInvalidFrame
	}
	s := string(data[offset : offset+int(n)])
	return s, offset + int(n), nil
}
