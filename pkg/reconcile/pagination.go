package reconcile

// PaginationState is the state of the embedded pagination controller.
type PaginationState int

const (
	// Idle means no page is in flight and more results may exist.
	Idle PaginationState = iota
	// LoadingMore means a continuation page was requested and has not delivered yet.
	LoadingMore
	// LoadedAll means a completing page reported exhaustion. Terminal until Clear.
	LoadedAll
)

func (s PaginationState) String() string {
	switch s {
	case Idle:
		return "idle"
	case LoadingMore:
		return "loading_more"
	case LoadedAll:
		return "loaded_all"
	default:
		return "unknown"
	}
}

// UnknownPageSize is the page size before the first batch is observed.
const UnknownPageSize = -1

// Pagination is a snapshot of the pagination controller.
type Pagination struct {
	State    PaginationState
	PageSize int
}

// LoadingMore reports whether a continuation page is in flight.
func (p Pagination) LoadingMore() bool { return p.State == LoadingMore }

// HasLoadedAll reports whether the query is exhausted.
func (p Pagination) HasLoadedAll() bool { return p.State == LoadedAll }

type pagination struct {
	state    PaginationState
	pageSize int
	pending  int
}

func newPagination() pagination {
	return pagination{state: Idle, pageSize: UnknownPageSize, pending: -1}
}

// sizeAfter returns the page size in effect once a batch of size changes
// from page is accepted. Only the first batch of the first page sets it.
func (p *pagination) sizeAfter(page, size int) int {
	if page == 0 && p.pageSize == UnknownPageSize {
		return size
	}
	return p.pageSize
}

// offset is the view position where page starts under uniform page sizes.
func offset(page, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return page * pageSize
}

// begin moves Idle -> LoadingMore for the given page.
func (p *pagination) begin(page int) bool {
	if p.state != Idle {
		return false
	}
	p.state = LoadingMore
	p.pending = page
	return true
}

// awaiting reports whether a batch from page completes the load in flight.
func (p *pagination) awaiting(page int) bool {
	return p.state == LoadingMore && p.pending == page
}

// complete moves LoadingMore -> Idle or LoadedAll.
func (p *pagination) complete(exhausted bool) {
	p.pending = -1
	if exhausted {
		p.state = LoadedAll
		return
	}
	p.state = Idle
}

// abort drops a load that could not be subscribed.
func (p *pagination) abort() {
	p.pending = -1
	p.state = Idle
}

func (p *pagination) reset() {
	*p = newPagination()
}

func (p *pagination) snapshot() Pagination {
	return Pagination{State: p.state, PageSize: p.pageSize}
}
