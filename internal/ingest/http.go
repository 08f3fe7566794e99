package ingest

import (
	"encoding/json"
	"io"
	"net/http"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"

	evalerrors "github.com/aiqaio/evalserver/internal/errors"
)

// maxRequestBytes bounds an ingestion payload; a client sending more is
// treated as malformed rather than left to exhaust memory.
const maxRequestBytes = 32 * 1024 * 1024

// HTTPHandler implements `POST /span` for both the HTTP/JSON and
// HTTP/Protobuf transports named in spec.md section 6, dispatching on
// Content-Type.
func HTTPHandler(pipeline *Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes+1))
		if err != nil {
			writeError(w, evalerrors.Wrap(evalerrors.KindValidation, "could not read request body", err))
			return
		}
		if len(body) > maxRequestBytes {
			writeError(w, evalerrors.New(evalerrors.KindValidation, "request body too large"))
			return
		}

		req := &coltracepb.ExportTraceServiceRequest{}
		switch contentType := r.Header.Get("Content-Type"); contentType {
		case "application/x-protobuf":
			if err := proto.Unmarshal(body, req); err != nil {
				writeError(w, evalerrors.Wrap(evalerrors.KindValidation, "malformed protobuf payload", err))
				return
			}
		default:
			// Proto loaded with camelCase field names and numeric enum values so
			// this path's request shape matches the gRPC path byte-for-byte
			// (spec.md section 6).
			if err := protojson.Unmarshal(body, req); err != nil {
				writeError(w, evalerrors.Wrap(evalerrors.KindValidation, "malformed json payload", err))
				return
			}
		}

		if _, err := pipeline.Ingest(r.Context(), transportFor(r), req); err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	}
}

func transportFor(r *http.Request) string {
	if r.Header.Get("Content-Type") == "application/x-protobuf" {
		return "http-protobuf"
	}
	return "http-json"
}

func writeError(w http.ResponseWriter, err error) {
	status, body := evalerrors.ResponseBody(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
