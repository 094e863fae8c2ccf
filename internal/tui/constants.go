package tui

const (
	// Input Dimensions
	InputWidth = 50

	// Layout Offsets and Padding
	HeaderHeight           = 7
	FooterHeight           = 1
	ProgressBarWidthOffset = 4
	DefaultPaddingX        = 1
	DefaultPaddingY        = 0
	PopupWidth             = 80
	PopupHeight            = 13

	// List
	MinListHeight = 6
	RowHeight     = 2
)
