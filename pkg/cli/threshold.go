package cli

import (
	"github.com/spf13/pflag"

	"genie-copilot/internal/domain"
)

// tierValue is a pflag.Value for --threshold so flag parsing rejects
// unknown tiers before the run starts.
type tierValue struct {
	tier domain.ComplexityTier
}

var _ pflag.Value = (*tierValue)(nil)

func (v *tierValue) String() string {
	return v.tier.String()
}

func (v *tierValue) Set(s string) error {
	tier, err := domain.ParseTier(s)
	if err != nil {
		return err
	}
	v.tier = tier
	return nil
}

func (v *tierValue) Type() string {
	return "tier"
}
