package transcode

import (
	"github.com/musegrab/musegrab/grab/config"
	"github.com/musegrab/musegrab/grab/service"
)

// Action is what the conversion policy decided for a downloaded track.
type Action int

const (
	// ActionNone leaves the file as delivered.
	ActionNone Action = iota

	// ActionConvert re-encodes into the target codec.
	ActionConvert

	// ActionRefuseSpatial declines because immersive-audio streams cannot
	// survive a channel-bed re-encode.
	ActionRefuseSpatial

	// ActionRefuseUndesirable declines a conversion from a lossy source,
	// which grows the file without restoring fidelity.
	ActionRefuseUndesirable
)

// Decision is the outcome of planning a conversion.
type Decision struct {
	Action Action
	Target service.Codec
}

// Plan decides whether a track of the given source codec should be
// converted under the policy. It is a pure function of its inputs: the
// refusals here are policy outcomes, not errors, and the caller logs them
// and keeps the original file.
func Plan(source service.Codec, policy config.ConversionSettings) Decision {
	target, ok := policy.Targets[source]
	if !ok || target == source {
		return Decision{Action: ActionNone}
	}

	if source.Props().Spatial || target.Props().Spatial {
		return Decision{Action: ActionRefuseSpatial, Target: target}
	}

	if !source.Props().Lossless && !policy.AllowUndesirable {
		return Decision{Action: ActionRefuseUndesirable, Target: target}
	}

	return Decision{Action: ActionConvert, Target: target}
}
