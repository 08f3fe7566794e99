package ingest

import (
	"context"
	"errors"

	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"

	"github.com/aiqaio/evalserver/internal/auth"
	"github.com/aiqaio/evalserver/internal/domain"
	evalerrors "github.com/aiqaio/evalserver/internal/errors"
	"github.com/aiqaio/evalserver/internal/normalize"
	"github.com/aiqaio/evalserver/internal/observability"
	"github.com/aiqaio/evalserver/internal/ratelimit"
	"github.com/aiqaio/evalserver/internal/searchstore"
	"github.com/aiqaio/evalserver/internal/store"
)

// deferredRollUpRetries bounds the read-modify-write retry loop applied to a
// parent span living outside the current ingestion batch (spec.md section 5:
// "retried up to a small bounded number of times").
const deferredRollUpRetries = 3

// Pipeline implements the ingestion steps of spec.md section 4.5, shared by
// the HTTP/JSON, HTTP/Protobuf, and gRPC transports.
type Pipeline struct {
	Orgs    store.OrganisationStore
	Limiter *ratelimit.Limiter
	Spans   *searchstore.Client
	Log     *observability.Logger
	Tracer  *observability.Tracer
	Metrics *observability.Metrics
}

// Ingest runs the full pipeline over a decoded OTLP export request and
// returns the number of spans accepted.
func (p *Pipeline) Ingest(ctx context.Context, transport string, req *coltracepb.ExportTraceServiceRequest) (int, error) {
	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		return 0, evalerrors.New(evalerrors.KindAuthentication, "missing credentials")
	}
	if !principal.Role.CanIngest() {
		return 0, evalerrors.New(evalerrors.KindAuthorisation, "role may not ingest spans")
	}

	ctx, span := p.Tracer.TraceIngest(ctx, transport, principal.OrganisationID)
	defer span.End()

	org, err := p.Orgs.Get(ctx, principal.OrganisationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, evalerrors.New(evalerrors.KindAuthentication, "unknown organisation")
		}
		return 0, evalerrors.Wrap(evalerrors.KindUnavailable, "could not resolve organisation", err)
	}

	if result := p.Limiter.Check(ctx, org.ID, org.EffectiveRateLimit()); result != nil && !result.Allowed {
		p.Metrics.RecordRateLimitRejection(org.ID)
		return 0, evalerrors.New(evalerrors.KindQuotaExceeded, "ingestion rate limit exceeded")
	}

	spans := flattenRequest(req)
	for i := range spans {
		spans[i].OrganisationID = org.ID
	}

	rollUpWithinBatch(spans)

	if err := p.Limiter.Record(ctx, org.ID, len(spans)); err != nil {
		p.Log.Warn(ctx, "rate limiter record failed, proceeding fail-open", "organisation", org.ID, "error", err)
	}

	if err := p.Spans.BulkInsertSpans(ctx, spans); err != nil {
		return 0, evalerrors.Wrap(evalerrors.KindUnavailable, "span store unavailable", err)
	}

	p.Metrics.SpansIngested(org.ID, transport, len(spans))
	p.applyDeferredRollUps(ctx, spans, org.ID)

	return len(spans), nil
}

// applyDeferredRollUps handles step 6's external case: a child's parent was
// not present in this batch, so the parent is read back by id, rolled up in
// memory, and patched — guarded by the parent's own `_seen` set so a
// concurrent or repeated ingestion of the same child is a no-op.
func (p *Pipeline) applyDeferredRollUps(ctx context.Context, spans []domain.Span, orgID string) {
	inBatch := make(map[string]bool, len(spans))
	for _, s := range spans {
		inBatch[s.ID] = true
	}
	for _, child := range spans {
		if child.ParentID == "" || inBatch[child.ParentID] {
			continue
		}
		p.applyDeferredRollUp(ctx, child, orgID)
	}
}

func (p *Pipeline) applyDeferredRollUp(ctx context.Context, child domain.Span, orgID string) {
	for attempt := 0; attempt < deferredRollUpRetries; attempt++ {
		parent, err := p.Spans.GetSpanByID(ctx, child.ParentID, orgID)
		if err != nil {
			p.Log.Warn(ctx, "deferred roll-up: could not read parent", "parent", child.ParentID, "error", err)
			return
		}
		if parent == nil {
			// Parent hasn't arrived yet (or ever will); nothing to roll up.
			return
		}

		hash := normalize.ContentHash(&child)
		if parent.HasSeen(hash) {
			return
		}
		parent.MarkSeen(hash)
		parent.Usage.Add(child.Usage)

		patch := map[string]any{"usage": parent.Usage, "_seen": parent.Seen}
		if err := p.Spans.UpdateSpan(ctx, parent.ID, patch, orgID); err != nil {
			p.Log.Warn(ctx, "deferred roll-up: update failed, retrying", "parent", parent.ID, "attempt", attempt, "error", err)
			continue
		}
		return
	}
	p.Log.Warn(ctx, "deferred roll-up: exhausted retries", "parent", child.ParentID, "child", child.ID)
}
