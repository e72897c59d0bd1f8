package crawler

// EventType identifies what happened during a crawl run.
type EventType string

const (
	EventPageStart     EventType = "page_start"
	EventPageDone      EventType = "page_done"
	EventPageError     EventType = "page_error"
	EventDocumentFound EventType = "document_found"
	EventDownloadStart EventType = "download_start"
	EventDownloadDone  EventType = "download_done"
	EventDownloadError EventType = "download_error"
)

// Event is emitted during crawling and downloading for progress tracking.
type Event struct {
	Type  EventType
	URL   string
	Path  string // destination file (download events only)
	Bytes int64  // bytes written (EventDownloadDone only)
	Err   error  // only for error events
}

// EventFunc receives events. It is called from many goroutines at once.
type EventFunc func(Event)

func (f EventFunc) emit(e Event) {
	if f != nil {
		f(e)
	}
}
