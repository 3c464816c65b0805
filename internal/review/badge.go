package review

// Badge is the visual indicator rendered next to a cuadre.
type Badge struct {
	Status  Status `json:"status"`
	Label   string `json:"label"`
	Variant string `json:"variant"`
}

// BadgeFor maps a status to its indicator.
func BadgeFor(status Status) Badge {
	switch status {
	case StatusApproved:
		return Badge{Status: StatusApproved, Label: "Aprobado", Variant: "success"}
	case StatusRejected:
		return Badge{Status: StatusRejected, Label: "Rechazado", Variant: "destructive"}
	default:
		return Badge{Status: StatusPending, Label: "Pendiente", Variant: "secondary"}
	}
}
