package apimodel

type Status struct {
	Version   string        `json:"version"`
	Scanner   ScannerStatus `json:"scanner"`
	Slot      SlotStatus    `json:"slot"`
	Device    DeviceStatus  `json:"device"`
	Displayed []string      `json:"displayed"`
}

type ScannerStatus struct {
	State  string `json:"state"`
	Row    int    `json:"row"`
	Cycles uint64 `json:"cycles"`
	Swaps  uint64 `json:"swaps"`
}

type SlotStatus struct {
	Deposits uint64 `json:"deposits"`
	Takes    uint64 `json:"takes"`
	Waits    uint64 `json:"waits"`
	Ready    bool   `json:"ready"`
}

type DeviceStatus struct {
	OpenCount          int64 `json:"open_count"`
	LifetimeOpenCount  int64 `json:"lifetime_open_count"`
	LifetimeFrameCount int64 `json:"lifetime_frame_count"`
}
