package view

// Page describes one page of a list. Start and End are the half-open index
// range of the page's items.
type Page struct {
	Number int
	Size   int
	Total  int
	Pages  int
	Start  int
	End    int
}

// Paginate computes page number page of total items. There is always at
// least one page, and out-of-range page numbers are clamped.
func Paginate(total, pageSize, page int) Page {
	if pageSize < 1 {
		pageSize = 1
	}
	if total < 0 {
		total = 0
	}

	pages := (total + pageSize - 1) / pageSize
	if pages < 1 {
		pages = 1
	}
	page = min(max(page, 1), pages)

	start := (page - 1) * pageSize
	end := min(start+pageSize, total)

	return Page{
		Number: page,
		Size:   pageSize,
		Total:  total,
		Pages:  pages,
		Start:  start,
		End:    end,
	}
}

func (p Page) HasPrev() bool { return p.Number > 1 }
func (p Page) HasNext() bool { return p.Number < p.Pages }
func (p Page) Prev() int     { return max(p.Number-1, 1) }
func (p Page) Next() int     { return min(p.Number+1, p.Pages) }

// Numbers lists every page number, for pager links.
func (p Page) Numbers() []int {
	out := make([]int, p.Pages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// PageOf returns the items of the requested page together with its Page.
func PageOf[T any](items []T, pageSize, page int) ([]T, Page) {
	p := Paginate(len(items), pageSize, page)
	return items[p.Start:p.End], p
}
