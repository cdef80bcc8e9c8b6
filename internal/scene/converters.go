package scene

import (
	"fmt"
	"math"
	"strconv"

	"github.com/gogpu/gputypes"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/gogpu/bind"
	"github.com/gogpu/bind/internal/color"
)

// converterFactory builds a converter from its parameters. Number
// formatting uses p so output follows the scene locale.
type converterFactory func(spec ConverterSpec, p *message.Printer) (bind.Converter, error)

var converters = map[string]converterFactory{
	"format-int": func(spec ConverterSpec, p *message.Printer) (bind.Converter, error) {
		format := defaultString(spec.Format, "%d")
		return bind.NewConverter(func(v int) (string, error) {
			return p.Sprintf(format, v), nil
		}), nil
	},
	"format-float": func(spec ConverterSpec, p *message.Printer) (bind.Converter, error) {
		format := defaultString(spec.Format, "%.2f")
		return bind.NewConverter(func(v float64) (string, error) {
			return p.Sprintf(format, v), nil
		}), nil
	},
	"percent": func(_ ConverterSpec, p *message.Printer) (bind.Converter, error) {
		return bind.NewConverter(func(v float64) (string, error) {
			return p.Sprint(number.Percent(v, number.MaxFractionDigits(0))), nil
		}), nil
	},
	"itoa": func(ConverterSpec, *message.Printer) (bind.Converter, error) {
		return bind.NewTwoWayConverter(
			func(v int) (string, error) { return strconv.Itoa(v), nil },
			strconv.Atoi,
		), nil
	},
	"int-to-float": func(ConverterSpec, *message.Printer) (bind.Converter, error) {
		return bind.NewTwoWayConverter(
			func(v int) (float64, error) { return float64(v), nil },
			func(v float64) (int, error) { return int(math.Round(v)), nil },
		), nil
	},
	"scale": func(spec ConverterSpec, _ *message.Printer) (bind.Converter, error) {
		f := spec.Factor
		if f == 0 {
			return nil, fmt.Errorf("scale: factor must not be zero")
		}
		return bind.NewTwoWayConverter(
			func(v float64) (float64, error) { return v * f, nil },
			func(v float64) (float64, error) { return v / f, nil },
		), nil
	},
	"gradient": func(spec ConverterSpec, _ *message.Printer) (bind.Converter, error) {
		from, err := color.Hex(defaultString(spec.From, "#000000"))
		if err != nil {
			return nil, fmt.Errorf("gradient: %w", err)
		}
		to, err := color.Hex(defaultString(spec.To, "#ffffff"))
		if err != nil {
			return nil, fmt.Errorf("gradient: %w", err)
		}
		maxv := spec.Max
		if maxv <= 0 {
			maxv = 1
		}
		return bind.NewConverter(func(v float64) (gputypes.Color, error) {
			return color.Lerp(from, to, v/maxv), nil
		}), nil
	},
	"not": func(ConverterSpec, *message.Printer) (bind.Converter, error) {
		not := func(v bool) (bool, error) { return !v, nil }
		return bind.NewTwoWayConverter(not, not), nil
	},
}

// newConverter returns the converter named by spec.
func newConverter(spec ConverterSpec, p *message.Printer) (bind.Converter, error) {
	f, ok := converters[spec.Name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownConv, spec.Name)
	}
	return f(spec, p)
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
