package sequence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jhoicas/taller-core/internal/domain"
)

// Scheme define cómo se numera una familia: prefijo, ancho del correlativo y si la serie
// reinicia cada día (OC-20260115-003) o es continua (V0001-000046).
type Scheme struct {
	Prefix     string
	Width      int
	DateScoped bool
}

const dateLayout = "20060102"

// Key devuelve la clave de la serie: el prefijo o prefijo-AAAAMMDD.
func (s Scheme) Key(now time.Time) string {
	if s.DateScoped {
		return s.Prefix + "-" + now.Format(dateLayout)
	}
	return s.Prefix
}

// Format arma el número visible. Si n supera el ancho se imprime completo, nunca truncado.
func (s Scheme) Format(key string, n int64) string {
	return fmt.Sprintf("%s-%0*d", key, s.Width, n)
}

// Validate verifica que el esquema produzca números parseables.
func (s Scheme) Validate() error {
	if s.Prefix == "" || s.Width <= 0 {
		return fmt.Errorf("%w: esquema de numeración incompleto", domain.ErrInvalidInput)
	}
	if strings.ContainsAny(s.Prefix, " \t\n") {
		return fmt.Errorf("%w: prefijo %q con espacios", domain.ErrInvalidInput, s.Prefix)
	}
	return nil
}

// Parse separa un número correlativo en clave y componente numérico final.
func Parse(number string) (key string, n int64, err error) {
	i := strings.LastIndex(number, "-")
	if i <= 0 || i == len(number)-1 {
		return "", 0, fmt.Errorf("%w: número %q", domain.ErrInvalidInput, number)
	}
	n, err = strconv.ParseInt(number[i+1:], 10, 64)
	if err != nil || n < 0 {
		return "", 0, fmt.Errorf("%w: número %q", domain.ErrInvalidInput, number)
	}
	return number[:i], n, nil
}
