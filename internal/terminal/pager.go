package terminal

// Pager tracks the page and the selected group on it.
type Pager struct {
	PageSize int
	Total    int
	Page     int
	Selected int
}

// Pages returns the number of pages, at least one.
func (p *Pager) Pages() int {
	if p.Total <= 0 || p.PageSize <= 0 {
		return 1
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// Bounds returns the [start, end) group range of the current page.
func (p *Pager) Bounds() (int, int) {
	start := p.Page * p.PageSize
	end := start + p.PageSize
	if end > p.Total {
		end = p.Total
	}
	return start, end
}

// Current returns the absolute index of the selected group, or -1.
func (p *Pager) Current() int {
	start, end := p.Bounds()
	if start+p.Selected >= end {
		return -1
	}
	return start + p.Selected
}

// Move applies a navigation key and reports whether anything changed.
func (p *Pager) Move(k Key) bool {
	start, end := p.Bounds()
	switch k {
	case KeyUp:
		if p.Selected > 0 {
			p.Selected--
			return true
		}
	case KeyDown:
		if start+p.Selected < end-1 {
			p.Selected++
			return true
		}
	case KeyLeft:
		if p.Page > 0 {
			p.Page--
			p.Selected = 0
			return true
		}
	case KeyRight:
		if p.Page < p.Pages()-1 {
			p.Page++
			p.Selected = 0
			return true
		}
	}
	return false
}
