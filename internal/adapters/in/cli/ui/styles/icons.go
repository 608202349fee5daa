package styles

// Status icons. Plain Unicode so CI log viewers render them without a
// patched font.
const (
	IconSuccess = "✓"
	IconError   = "✗"
	IconWarning = "!"
	IconSkipped = "-"
	IconBullet  = "▸"
)
