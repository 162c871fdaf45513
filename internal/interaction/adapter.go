package interaction

import (
	"fmt"

	"github.com/dropDatabas3/passlane/internal/reconcile"
)

// ToProviderResult traduce una decisión de reconciliación al payload que el
// provider entiende. Las tres variantes exitosas cierran la interacción con
// un login sobre la cuenta resuelta; los rechazos viajan como error HTTP y
// nunca llegan al provider.
func ToProviderResult(d *reconcile.Decision) (Result, error) {
	if d == nil || d.AccountID == "" {
		return Result{}, fmt.Errorf("interaction: decision without account")
	}
	switch d.Kind {
	case reconcile.KindSignIn, reconcile.KindRegister, reconcile.KindBindIdentity:
		return Result{Login: &LoginResult{AccountID: d.AccountID}}, nil
	default:
		return Result{}, fmt.Errorf("interaction: unmappable decision kind %q", d.Kind)
	}
}
