package session

type LoginSchema struct {
	Email             string `json:"email" validate:"required,email"`
	Password          string `json:"password" validate:"required"`
	DeviceFingerprint string `json:"device_fingerprint" validate:"required"`
}

type LoginResponseSchema struct {
	Token string `json:"token,omitempty"`
	// CodeRequired signals that a one-time code was sent and the login
	// must be completed through the device-code route.
	CodeRequired bool `json:"code_required"`
}

type DeviceCodeSchema struct {
	Email             string `json:"email" validate:"required,email"`
	Code              string `json:"code" validate:"required,len=6,numeric"`
	DeviceFingerprint string `json:"device_fingerprint" validate:"required"`
}

type DeviceCodeResponseSchema struct {
	Token string `json:"token"`
}
