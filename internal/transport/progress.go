package transport

import (
	"io"
	"time"

	"golang.org/x/time/rate"

	"hoist/internal/events"
)

// progressReader counts file bytes handed to the HTTP body and reports
// percent changes through emit, throttled by limiter.
type progressReader struct {
	src     io.Reader
	total   int64
	read    int64
	last    int
	limiter *rate.Limiter
	emit    func(percent int)
	touch   func()
}

func newProgressReader(src io.Reader, total int64, interval time.Duration, emit func(int), touch func()) *progressReader {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &progressReader{
		src:     src,
		total:   total,
		last:    -2,
		limiter: rate.NewLimiter(limit, 1),
		emit:    emit,
		touch:   touch,
	}
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	if n > 0 {
		r.read += int64(n)
		if r.touch != nil {
			r.touch()
		}
	}
	r.report(err == io.EOF)
	return n, err
}

func (r *progressReader) report(done bool) {
	percent := r.percent()
	if percent == r.last {
		return
	}
	final := done || percent == 100
	if !final && !r.limiter.Allow() {
		return
	}
	r.last = percent
	r.emit(percent)
}

func (r *progressReader) percent() int {
	if r.total <= 0 {
		return events.UnknownProgress
	}
	pct := int(r.read * 100 / r.total)
	if pct > 100 {
		pct = 100
	}
	return pct
}
