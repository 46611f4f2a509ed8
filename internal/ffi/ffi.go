// Package ffi is the cgo export surface: every exported function is a
// thin adapter from C strings/scalars onto internal/pipeline's Go API, and
// every one except version, ffi_free_string and ffi_free_buffer is
// panic-guarded. Most of the surface uses JSON as the payload
// encoding on both sides of the boundary; query_pipeline_provide_data_binary
// is the one export that instead speaks internal/wire's binary framing,
// for a caller that already has the gateway's page as bytes. Nothing in
// here does I/O; a host process still owns fetching gateway pages and
// feeding them back through provide_data.
package ffi

/*
#include <stdint.h>
#include <stdlib.h>
*/
import "C"

import (
	"encoding/json"
	"unsafe"

	"github.com/cosmosquery/crosspartition/internal/config"
	"github.com/cosmosquery/crosspartition/internal/errors"
	"github.com/cosmosquery/crosspartition/internal/logger"
	"github.com/cosmosquery/crosspartition/internal/pkey"
	"github.com/cosmosquery/crosspartition/internal/pipeline"
	"github.com/cosmosquery/crosspartition/internal/plan"
	"github.com/cosmosquery/crosspartition/internal/request"
	"github.com/cosmosquery/crosspartition/internal/wire"
)

// runtime is the one process-wide Runtime every exported pipeline function
// shares, mirroring pkg/client.Client's single shared Runtime; a host
// binding this library into a process is expected to host exactly one of
// these, same as it hosts exactly one handle table.
var runtime = pipeline.NewRuntime(config.Default())

// cstr copies s into a C-allocated, NUL-terminated buffer the caller owns.
// Every *C.char this package hands back across the boundary must be freed
// with ffi_free_string, never with Go's own allocator.
func cstr(s string) *C.char {
	return C.CString(s)
}

// goStr reads a NUL-terminated C string without taking ownership of it.
func goStr(s *C.char) string {
	if s == nil {
		return ""
	}
	return C.GoString(s)
}

//export ffi_free_string
func ffi_free_string(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}

//export version
func version() *C.char {
	return cstr("crosspartition-engine/1.0")
}

//export tracing_enable
func tracing_enable(level C.int) C.int {
	err := guard(func() error {
		runtime.Logger.SetLevel(logger.LevelFromVerbosity(int(level)))
		return nil
	})
	return C.int(resultOf(err))
}

//export query_supported_features
func query_supported_features() *C.char {
	features, _ := guardValue(func() (pipeline.SupportedFeatures, error) {
		return pipeline.QuerySupportedFeatures(runtime.Config), nil
	})
	out, err := json.Marshal(features)
	if err != nil {
		return cstr("{}")
	}
	return cstr(string(out))
}

// query_pipeline_create parses containerRangesJSON (a JSON array of
// plan.PartitionKeyRange) and planJSON (a PartitionedQueryExecutionInfo),
// composes the operator tree, and writes the new pipeline's handle to
// outHandle. A non-Success return leaves *outHandle untouched.
//
//export query_pipeline_create
func query_pipeline_create(containerRangesJSON, planJSON, originalQuery *C.char, outHandle *C.uint64_t) C.int {
	handle, err := guardValue(func() (uint64, error) {
		var ranges []plan.PartitionKeyRange
		if err := json.Unmarshal([]byte(goStr(containerRangesJSON)), &ranges); err != nil {
			return 0, errors.Wrap(errors.DeserializationError, "container ranges", err)
		}

		p, err := runtime.Create(ranges, []byte(goStr(planJSON)), goStr(originalQuery))
		if err != nil {
			return 0, err
		}
		return handles.put(p), nil
	})
	if err != nil {
		return C.int(resultOf(err))
	}
	*outHandle = C.uint64_t(handle)
	return C.int(Success)
}

// runResult is query_pipeline_run's wire result: the items ready for the
// caller, the DataRequests it must satisfy before further progress, and
// whether the pipeline is permanently finished.
type runResult struct {
	Items    []itemJSON           `json:"items"`
	Requests []request.DataRequest `json:"requests"`
	Done     bool                 `json:"done"`
}

// itemJSON is operator.ResultItem re-keyed for the wire: Payload crosses as
// a raw JSON value (not a base64 string) since it's already a JSON
// document.
type itemJSON struct {
	Payload json.RawMessage `json:"payload"`
}

//export query_pipeline_run
func query_pipeline_run(handle C.uint64_t, budget C.int, outJSON **C.char) C.int {
	result, err := guardValue(func() (runResult, error) {
		p, ok := handles.get(uint64(handle))
		if !ok {
			return runResult{}, errors.New(errors.ArgumentNull, "unknown pipeline handle")
		}

		items, reqs, done, err := p.Run(int(budget))
		if err != nil {
			return runResult{}, err
		}

		out := runResult{Requests: reqs, Done: done}
		for _, it := range items {
			out.Items = append(out.Items, itemJSON{Payload: json.RawMessage(it.Payload)})
		}
		return out, nil
	})
	if err != nil {
		return C.int(resultOf(err))
	}

	encoded, jsonErr := json.Marshal(result)
	if jsonErr != nil {
		return C.int(resultOf(errors.Wrap(errors.InternalError, "encoding run result", jsonErr)))
	}
	*outJSON = cstr(string(encoded))
	return C.int(Success)
}

// provideDataResult is query_pipeline_provide_data's wire result: any
// follow-up DataRequest a queued read-many chunk produced once the
// delivered page was accepted.
type provideDataResult struct {
	FollowUp []request.DataRequest `json:"followUp"`
}

//export query_pipeline_provide_data
func query_pipeline_provide_data(handle C.uint64_t, requestID C.uint64_t, rangeID, data, continuation *C.char, outJSON **C.char) C.int {
	result, err := guardValue(func() (provideDataResult, error) {
		p, ok := handles.get(uint64(handle))
		if !ok {
			return provideDataResult{}, errors.New(errors.ArgumentNull, "unknown pipeline handle")
		}

		followUp, err := p.ProvideData(request.QueryResponse{
			RequestID:           uint64(requestID),
			PartitionKeyRangeID: goStr(rangeID),
			Data:                []byte(goStr(data)),
			Continuation:        goStr(continuation),
		})
		if err != nil {
			return provideDataResult{}, err
		}
		return provideDataResult{FollowUp: followUp}, nil
	})
	if err != nil {
		return C.int(resultOf(err))
	}

	encoded, jsonErr := json.Marshal(result)
	if jsonErr != nil {
		return C.int(resultOf(errors.Wrap(errors.InternalError, "encoding provide_data result", jsonErr)))
	}
	*outJSON = cstr(string(encoded))
	return C.int(Success)
}

//export query_pipeline_free
func query_pipeline_free(handle C.uint64_t) C.int {
	err := guard(func() error {
		p, ok := handles.remove(uint64(handle))
		if !ok {
			return errors.New(errors.ArgumentNull, "unknown pipeline handle")
		}
		p.Free()
		return nil
	})
	return C.int(resultOf(err))
}

// query_pipeline_provide_data_binary is provide_data's binary counterpart:
// frame is a single internal/wire QueryResponse frame rather than separate
// C strings, for a caller that already has the gateway's page as bytes and
// would rather not round-trip it through JSON. The follow-up DataRequests
// are written to outBuf as an encodeRequestBatch blob; free it with
// ffi_free_buffer, not ffi_free_string (it is not NUL-terminated).
//
//export query_pipeline_provide_data_binary
func query_pipeline_provide_data_binary(handle C.uint64_t, frame *C.char, frameLen C.int, outBuf **C.char, outLen *C.int) C.int {
	followUp, err := guardValue(func() ([]request.DataRequest, error) {
		p, ok := handles.get(uint64(handle))
		if !ok {
			return nil, errors.New(errors.ArgumentNull, "unknown pipeline handle")
		}

		raw := C.GoBytes(unsafe.Pointer(frame), frameLen)
		resp, err := wire.DecodeQueryResponse(raw)
		if err != nil {
			return nil, errors.Wrap(errors.DeserializationError, "binary query response frame", err)
		}

		return p.ProvideData(*resp)
	})
	if err != nil {
		return C.int(resultOf(err))
	}

	encoded, encErr := encodeRequestBatch(followUp)
	if encErr != nil {
		return C.int(resultOf(errors.Wrap(errors.InternalError, "encoding follow-up request batch", encErr)))
	}
	*outBuf = (*C.char)(C.CBytes(encoded))
	*outLen = C.int(len(encoded))
	return C.int(Success)
}

//export ffi_free_buffer
func ffi_free_buffer(buf *C.char) {
	ffi_free_string(buf)
}

// readManyItemJSON is one (id, partitionKey) pair on the wire: partitionKey
// is a JSON array of 1-3 scalars, mirroring how a hierarchical key is
// written in a query request body.
type readManyItemJSON struct {
	ID           string        `json:"id"`
	PartitionKey []interface{} `json:"partitionKey"`
}

func decodeReadManyItems(raw []readManyItemJSON) ([]pipeline.ReadManyItem, error) {
	items := make([]pipeline.ReadManyItem, 0, len(raw))
	for _, r := range raw {
		key := make(pkey.Key, 0, len(r.PartitionKey))
		for _, v := range r.PartitionKey {
			switch t := v.(type) {
			case nil:
				key = append(key, pkey.Null())
			case bool:
				key = append(key, pkey.Bool(t))
			case float64:
				key = append(key, pkey.Number(t))
			case string:
				key = append(key, pkey.String(t))
			default:
				return nil, errors.New(errors.InvalidPartitionKey, "partition key component is not a scalar")
			}
		}
		items = append(items, pipeline.ReadManyItem{ID: r.ID, PartitionKey: key})
	}
	return items, nil
}

//export readmany_pipeline_create
func readmany_pipeline_create(handle C.uint64_t, itemsJSON *C.char, epkVersion C.int, outJSON **C.char) C.int {
	reqs, err := guardValue(func() ([]request.DataRequest, error) {
		p, ok := handles.get(uint64(handle))
		if !ok {
			return nil, errors.New(errors.ArgumentNull, "unknown pipeline handle")
		}

		var raw []readManyItemJSON
		if err := json.Unmarshal([]byte(goStr(itemsJSON)), &raw); err != nil {
			return nil, errors.Wrap(errors.DeserializationError, "read-many items", err)
		}
		items, err := decodeReadManyItems(raw)
		if err != nil {
			return nil, err
		}

		return p.ReadMany(items, pkey.Version(epkVersion))
	})
	if err != nil {
		return C.int(resultOf(err))
	}

	encoded, jsonErr := json.Marshal(reqs)
	if jsonErr != nil {
		return C.int(resultOf(errors.Wrap(errors.InternalError, "encoding read-many requests", jsonErr)))
	}
	*outJSON = cstr(string(encoded))
	return C.int(Success)
}
