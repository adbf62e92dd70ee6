package models

// BoundingBox is a pixel rectangle anchored at its top-left corner.
type BoundingBox struct {
	OriginX int
	OriginY int
	Width   int
	Height  int
}

// Category is one candidate class for a detected region.
type Category struct {
	Index int
	Label string
	Score float64
}

// Region is a single detected area as reported by an inference backend,
// with its candidate categories in backend order.
type Region struct {
	Box        BoundingBox
	Categories []Category
}
