// Package buckets parsea labels de texto libre de mercados tipo "bucket"
// ("<40k", "40k-50k", "between 1.5m and 2m", "90+") a intervalos numéricos,
// y valida que un conjunto de intervalos sea exhaustivo.
//
// Va aislado del resto del detector para poder fuzzearlo por separado: el
// parsing es la parte más frágil de todo el pipeline.
package buckets

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// gapEpsilon tolera errores de redondeo al comprobar contigüidad.
const gapEpsilon = 1e-9

// pointStepMax es el hueco permitido entre buckets de punto único
// consecutivos (labels tipo temperatura: "84°", "85°", ... van de 1 en 1).
const pointStepMax = 1.0

// Interval es el rango numérico cubierto por una pata bucket.
// Low == -Inf o High == +Inf marcan colas abiertas.
type Interval struct {
	Low  float64
	High float64
}

// IsPoint devuelve true para un bucket de valor único ("85°").
func (iv Interval) IsPoint() bool {
	return !math.IsInf(iv.Low, 0) && !math.IsInf(iv.High, 0) && iv.Low == iv.High
}

var (
	// "less than 40k", "<40k", "under 250"
	reBelow = regexp.MustCompile(`(?i)^\s*(?:<|less\s+than\s+|under\s+|below\s+)\s*\$?([\d.,]+)\s*([kmbt]?)\s*°?f?\s*$`)
	// "40k+", ">40k", "40k or more", "more than 40k", "above 40k"
	reAbove  = regexp.MustCompile(`(?i)^\s*(?:>|more\s+than\s+|above\s+|over\s+)?\s*\$?([\d.,]+)\s*([kmbt]?)\s*(?:\+|\s+or\s+(?:more|above|higher))\s*°?f?\s*$`)
	reAbove2 = regexp.MustCompile(`(?i)^\s*(?:>|more\s+than\s+|above\s+|over\s+)\s*\$?([\d.,]+)\s*([kmbt]?)\s*°?f?\s*$`)
	// "between 40k and 50k"
	reBetween = regexp.MustCompile(`(?i)^\s*between\s+\$?([\d.,]+)\s*([kmbt]?)\s+and\s+\$?([\d.,]+)\s*([kmbt]?)\s*°?f?\s*$`)
	// "40k-50k", "40k – 50k", "40k to 50k"
	reRange = regexp.MustCompile(`(?i)^\s*\$?([\d.,]+)\s*([kmbt]?)\s*(?:-|–|—|to)\s*\$?([\d.,]+)\s*([kmbt]?)\s*°?f?\s*$`)
	// "85", "85°", "85°F", "$1.5m" — punto único
	rePoint = regexp.MustCompile(`(?i)^\s*\$?([\d.,]+)\s*([kmbt]?)\s*°?f?\s*$`)
)

var suffixScale = map[string]float64{
	"":  1,
	"k": 1e3,
	"m": 1e6,
	"b": 1e9,
	"t": 1e12,
}

// Parse intenta interpretar label como un bucket numérico.
// Devuelve (intervalo, true) si lo es, (cero, false) si no.
func Parse(label string) (Interval, bool) {
	s := strings.TrimSpace(label)
	if s == "" {
		return Interval{}, false
	}

	if m := reBelow.FindStringSubmatch(s); m != nil {
		v, ok := parseNumber(m[1], m[2])
		if !ok {
			return Interval{}, false
		}
		return Interval{Low: math.Inf(-1), High: v}, true
	}
	if m := reBetween.FindStringSubmatch(s); m != nil {
		lo, ok1 := parseNumber(m[1], m[2])
		hi, ok2 := parseNumber(m[3], m[4])
		if !ok1 || !ok2 || hi < lo {
			return Interval{}, false
		}
		return Interval{Low: lo, High: hi}, true
	}
	if m := reRange.FindStringSubmatch(s); m != nil {
		lo, ok1 := parseNumber(m[1], m[2])
		hi, ok2 := parseNumber(m[3], m[4])
		if !ok1 || !ok2 || hi < lo {
			return Interval{}, false
		}
		// "40-50k" hereda el sufijo del extremo alto
		if m[2] == "" && m[4] != "" {
			lo *= suffixScale[strings.ToLower(m[4])]
		}
		return Interval{Low: lo, High: hi}, true
	}
	if m := reAbove.FindStringSubmatch(s); m != nil {
		v, ok := parseNumber(m[1], m[2])
		if !ok {
			return Interval{}, false
		}
		return Interval{Low: v, High: math.Inf(1)}, true
	}
	if m := reAbove2.FindStringSubmatch(s); m != nil {
		v, ok := parseNumber(m[1], m[2])
		if !ok {
			return Interval{}, false
		}
		return Interval{Low: v, High: math.Inf(1)}, true
	}
	if m := rePoint.FindStringSubmatch(s); m != nil {
		v, ok := parseNumber(m[1], m[2])
		if !ok {
			return Interval{}, false
		}
		return Interval{Low: v, High: v}, true
	}
	return Interval{}, false
}

// parseNumber convierte "1,234.5" + sufijo k/m/b/t a float64.
func parseNumber(num, suffix string) (float64, bool) {
	num = strings.ReplaceAll(num, ",", "")
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	scale, ok := suffixScale[strings.ToLower(suffix)]
	if !ok {
		return 0, false
	}
	return v * scale, true
}

// Exhaustive valida que los intervalos cubran toda la recta:
// al menos una cola abierta por abajo, al menos una por arriba, y sin
// hueco entre los intervalos finitos (el solape se tolera). Entre dos
// buckets de punto único consecutivos se permite un paso de hasta una
// unidad (labels de temperatura que van de grado en grado).
//
// Añadir una pata válida más a un conjunto ya exhaustivo lo mantiene
// exhaustivo: más cobertura nunca abre huecos.
func Exhaustive(ivs []Interval) bool {
	if len(ivs) < 2 {
		return false
	}

	lowTails, highTails := 0, 0
	for _, iv := range ivs {
		if math.IsInf(iv.Low, -1) {
			lowTails++
		}
		if math.IsInf(iv.High, 1) {
			highTails++
		}
	}
	if lowTails < 1 || highTails < 1 {
		return false
	}

	sorted := make([]Interval, len(ivs))
	copy(sorted, ivs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Low != sorted[j].Low {
			return sorted[i].Low < sorted[j].Low
		}
		return sorted[i].High < sorted[j].High
	})

	// Cobertura acumulada: con solapes, el vecino inmediato puede acabar
	// "dentro" de un intervalo anterior más ancho, así que el hueco se mide
	// contra el máximo High visto, no contra el intervalo previo.
	cover := sorted[0].High
	coverIsPoint := sorted[0].IsPoint()
	for i := 1; i < len(sorted); i++ {
		cur := sorted[i]
		gap := cur.Low - cover
		switch {
		case gap <= gapEpsilon:
		case (coverIsPoint || cur.IsPoint()) && gap <= pointStepMax+gapEpsilon:
			// Buckets de punto único van a paso de unidad (grados, años).
		default:
			return false
		}
		if cur.High > cover {
			cover = cur.High
			coverIsPoint = cur.IsPoint()
		}
	}
	return true
}
