package upload

import "io"

// TransferEvent describes upload progress.
type TransferEvent struct {
	Percent     float64
	Transferred int64
	Total       int64
}

// progressReader reports every read from r to onProgress.
type progressReader struct {
	r           io.Reader
	total       int64
	transferred int64
	onProgress  func(TransferEvent)
}

func newProgressReader(r io.Reader, total int64, onProgress func(TransferEvent)) *progressReader {
	return &progressReader{r: r, total: total, onProgress: onProgress}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.transferred += int64(n)
		p.report()
	}
	return n, err
}

func (p *progressReader) report() {
	if p.onProgress == nil {
		return
	}
	percent := 1.0
	if p.total > 0 {
		percent = float64(p.transferred) / float64(p.total)
		if percent > 1 {
			percent = 1
		}
	}
	p.onProgress(TransferEvent{Percent: percent, Transferred: p.transferred, Total: p.total})
}
