package cart

// Cart is the active checkout session's line-item collection. There is
// exactly one writer per session; every mutation is synchronously saved
// through the Store so a reload reconstructs the cart without touching
// the remote store.
type Cart struct {
	store Store
	lines []Line
}

// Line is one product+package selection with the unit price captured
// at the time it was added.
type Line struct {
	ProductID   string  `json:"product_id"`
	PackageID   string  `json:"package_id"`
	ProductName string  `json:"product_name"`
	ImageRef    string  `json:"image_ref,omitempty"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
}

func (l Line) sameKey(productID, packageID string) bool {
	return l.ProductID == productID && l.PackageID == packageID
}

// New loads the persisted cart from the store. A missing or empty
// store yields an empty cart.
func New(store Store) (*Cart, error) {
	lines, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Cart{store: store, lines: lines}, nil
}

// Add merges into an existing line when the (product, package) pair is
// already present, otherwise appends. Non-positive quantities clamp to 1.
func (c *Cart) Add(line Line) error {
	if line.Quantity < 1 {
		line.Quantity = 1
	}
	merged := false
	for i := range c.lines {
		if c.lines[i].sameKey(line.ProductID, line.PackageID) {
			c.lines[i].Quantity += line.Quantity
			merged = true
			break
		}
	}
	if !merged {
		c.lines = append(c.lines, line)
	}
	return c.store.Save(c.lines)
}

// Remove drops the line for the (product, package) pair. Removing an
// absent line is a no-op but still persists.
func (c *Cart) Remove(productID, packageID string) error {
	kept := c.lines[:0]
	for _, line := range c.lines {
		if !line.sameKey(productID, packageID) {
			kept = append(kept, line)
		}
	}
	c.lines = kept
	return c.store.Save(c.lines)
}

// SetQuantity replaces the quantity of an existing line, clamped to >= 1.
func (c *Cart) SetQuantity(productID, packageID string, qty int) error {
	if qty < 1 {
		qty = 1
	}
	for i := range c.lines {
		if c.lines[i].sameKey(productID, packageID) {
			c.lines[i].Quantity = qty
			break
		}
	}
	return c.store.Save(c.lines)
}

// Clear empties the cart and removes the persisted copy.
func (c *Cart) Clear() error {
	c.lines = nil
	return c.store.Clear()
}

// Total is the recomputed sum of unit price times quantity.
func (c *Cart) Total() float64 {
	var total float64
	for _, line := range c.lines {
		total += line.UnitPrice * float64(line.Quantity)
	}
	return total
}

// Count is the recomputed sum of all line quantities.
func (c *Cart) Count() int {
	var count int
	for _, line := range c.lines {
		count += line.Quantity
	}
	return count
}

// Lines returns a copy of the current lines.
func (c *Cart) Lines() []Line {
	return append([]Line(nil), c.lines...)
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}
