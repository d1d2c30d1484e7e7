package aif

// ResultCode is the coarse outcome reported by controller operations.
type ResultCode int

const (
	OK ResultCode = iota
	AIMAlive
	AIMDead
	ResultError
	CreationSkipped
)

func (r ResultCode) String() string {
	switch r {
	case OK:
		return "OK"
	case AIMAlive:
		return "AIM_ALIVE"
	case AIMDead:
		return "AIM_DEAD"
	case CreationSkipped:
		return "CREATION_SKIPPED"
	default:
		return "ERROR"
	}
}

// CodeOf maps an error returned by the runtime to a ResultCode.
func CodeOf(err error) ResultCode {
	if err == nil {
		return OK
	}
	if HasCode(err, ErrCodeCreationSkipped) {
		return CreationSkipped
	}
	return ResultError
}

// StatusOf returns AIMAlive or AIMDead for a liveness flag.
func StatusOf(alive bool) ResultCode {
	if alive {
		return AIMAlive
	}
	return AIMDead
}
