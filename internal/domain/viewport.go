package domain

// ViewMode governs how navigation maps to positions.
type ViewMode string

const (
	ViewModeSingle     ViewMode = "single"
	ViewModeDouble     ViewMode = "double"
	ViewModeContinuous ViewMode = "continuous"
)

// IsValid reports whether the mode is known.
func (m ViewMode) IsValid() bool {
	switch m {
	case ViewModeSingle, ViewModeDouble, ViewModeContinuous:
		return true
	}
	return false
}

// DeviceClass is the coarse viewport class reported by the reader shell.
type DeviceClass string

const (
	DeviceNarrow DeviceClass = "narrow"
	DeviceWide   DeviceClass = "wide"
)

func (d DeviceClass) IsValid() bool {
	return d == DeviceNarrow || d == DeviceWide
}

// DefaultViewMode picks the session's starting mode for a device class.
// View modes are not persisted; every session starts from this default.
func DefaultViewMode(device DeviceClass, format DocumentFormat) ViewMode {
	if device == DeviceWide {
		return ViewModeDouble
	}
	if format == FormatPaginated {
		return ViewModeContinuous
	}
	return ViewModeSingle
}

// ConstrainViewMode degrades modes the device class cannot show.
func ConstrainViewMode(mode ViewMode, device DeviceClass) ViewMode {
	if mode == ViewModeDouble && device != DeviceWide {
		return ViewModeSingle
	}
	return mode
}

// PageExtent is the vertical extent of one page in continuous-scroll layout.
type PageExtent struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}
