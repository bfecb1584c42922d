package frameserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/user/moviereader/pkg/pipeline"
	"github.com/user/moviereader/pkg/ports"
)

// frameQuery holds the raw parameters of a frame request.
type frameQuery struct {
	Path       string `validate:"required"`
	Frame      int
	Stream     int `validate:"gte=-1"`
	StartMode  string
	Start      int
	EndMode    string
	End        int
	Missing    string
	ColorSpace string `validate:"max=64"`
	Refresh    int    `validate:"gte=0"`
	Format     string `validate:"omitempty,oneof=png jpg jpeg"`
}

var validate = validator.New()

func parseFrameRequest(r *http.Request) (pipeline.ReadRequest, ports.ImageFormat, error) {
	q := r.URL.Query()
	fq := frameQuery{
		Path:       getPathParam(r),
		StartMode:  q.Get("startMode"),
		EndMode:    q.Get("endMode"),
		Missing:    q.Get("missing"),
		ColorSpace: q.Get("colorspace"),
		Format:     strings.ToLower(q.Get("format")),
	}

	var err error
	ints := []struct {
		name string
		raw  string
		def  int
		dst  *int
	}{
		{"frame", mux.Vars(r)["frame"], 0, &fq.Frame},
		{"stream", q.Get("stream"), pipeline.BestStream, &fq.Stream},
		{"start", q.Get("start"), 0, &fq.Start},
		{"end", q.Get("end"), 0, &fq.End},
		{"refresh", q.Get("refresh"), 0, &fq.Refresh},
	}
	for _, p := range ints {
		if *p.dst, err = intParam(p.raw, p.def); err != nil {
			return pipeline.ReadRequest{}, 0, fmt.Errorf("invalid %s: %q", p.name, p.raw)
		}
	}

	if err := validate.Struct(fq); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return pipeline.ReadRequest{}, 0, fmt.Errorf("invalid %s", strings.ToLower(verrs[0].Field()))
		}
		return pipeline.ReadRequest{}, 0, err
	}

	req := pipeline.ReadRequest{
		Path:         fq.Path,
		Frame:        fq.Frame,
		Stream:       fq.Stream,
		ColorSpace:   fq.ColorSpace,
		RefreshCount: fq.Refresh,
		Mask:         pipeline.MaskConfig{Start: fq.Start, End: fq.End},
	}
	if req.Mask.StartMode, err = pipeline.ParseMaskMode(fq.StartMode); err != nil {
		return req, 0, err
	}
	if req.Mask.EndMode, err = pipeline.ParseMaskMode(fq.EndMode); err != nil {
		return req, 0, err
	}
	if req.Missing, err = pipeline.ParseMissingFrameMode(fq.Missing); err != nil {
		return req, 0, err
	}

	format := ports.FormatPNG
	if fq.Format != "" {
		format = ports.ParseImageFormat(fq.Format)
	}
	return req, format, nil
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
