package hal

// WindowConfig controls the desktop monitor window.
type WindowConfig struct {
	Title  string
	Hz     int
	Width  int
	Height int
	Scale  int
}

func (c *WindowConfig) fill() {
	if c.Title == "" {
		c.Title = "kthread"
	}
	if c.Hz <= 0 {
		c.Hz = 60
	}
	if c.Width <= 0 {
		c.Width = 480
	}
	if c.Height <= 0 {
		c.Height = 320
	}
	if c.Scale <= 0 {
		c.Scale = 2
	}
}
