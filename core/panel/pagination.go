package panel

// Page is one client-side slice of a fully fetched listing.
type Page[T any] struct {
	Items  []T
	Number int // 1-based
	Total  int // number of pages, at least 1
	Count  int // number of records across all pages
}

func (p Page[T]) HasPrev() bool { return p.Number > 1 }

func (p Page[T]) HasNext() bool { return p.Number < p.Total }

func (p Page[T]) Prev() int {
	if p.HasPrev() {
		return p.Number - 1
	}
	return p.Number
}

func (p Page[T]) Next() int {
	if p.HasNext() {
		return p.Number + 1
	}
	return p.Number
}

// Paginate returns the requested page of items, clamping page into [1, Total].
// A perPage <= 0 puts everything on a single page.
func Paginate[T any](items []T, page, perPage int) Page[T] {
	count := len(items)
	if perPage <= 0 {
		return Page[T]{Items: items, Number: 1, Total: 1, Count: count}
	}

	total := (count + perPage - 1) / perPage
	if total < 1 {
		total = 1
	}
	if page < 1 {
		page = 1
	} else if page > total {
		page = total
	}

	first := (page - 1) * perPage
	last := first + perPage
	if first > count {
		first = count
	}
	if last > count {
		last = count
	}
	return Page[T]{Items: items[first:last], Number: page, Total: total, Count: count}
}
