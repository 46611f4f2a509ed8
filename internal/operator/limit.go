package operator

// OffsetLimit wraps an upstream operator, discarding the first offset
// items then emitting the next limit, then completing. Once satisfied it
// stops pulling from upstream entirely, so no further DataRequest is
// issued for buffers only this operator still needed.
type OffsetLimit struct {
	upstream Operator
	offset   int
	limit    int

	skipped int
	emitted int
	done    bool
}

func NewOffsetLimit(upstream Operator, offset, limit int) *OffsetLimit {
	// limit == 0 can never emit anything, so the operator completes right
	// away rather than issuing requests upstream it will never use.
	return &OffsetLimit{upstream: upstream, offset: offset, limit: limit, done: limit == 0}
}

func (o *OffsetLimit) Pull(budget int) Pulled {
	if o.done {
		return Pulled{Done: true}
	}

	pullBudget := budget
	if pullBudget > 0 {
		pullBudget += o.offset - o.skipped
		if pullBudget < 0 {
			pullBudget = 0
		}
	}

	pulled := o.upstream.Pull(pullBudget)

	var items []ResultItem
	for _, item := range pulled.Items {
		if o.skipped < o.offset {
			o.skipped++
			continue
		}
		if o.emitted >= o.limit {
			break
		}
		items = append(items, item)
		o.emitted++
		if o.emitted >= o.limit {
			o.done = true
			break
		}
	}

	if o.done {
		return Pulled{Items: items, Done: true}
	}

	return Pulled{Items: items, NeedsRequest: pulled.NeedsRequest, Done: pulled.Done}
}

// Top wraps an upstream operator, emitting only the first n items then
// completing. Equivalent to OffsetLimit(0, n).
type Top struct {
	inner *OffsetLimit
}

func NewTop(upstream Operator, n int) *Top {
	return &Top{inner: NewOffsetLimit(upstream, 0, n)}
}

func (t *Top) Pull(budget int) Pulled {
	return t.inner.Pull(budget)
}
