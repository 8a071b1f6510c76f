package services

import (
	"fmt"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/label"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/label/raster"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/label/stream"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/transport"
)

// PayloadBuilder renders queue items in the encoding a transport accepts.
type PayloadBuilder struct {
	Catalog *model.Catalog
}

func (b PayloadBuilder) Build(item model.PrintableItem, heightMM int, initial string, kind transport.PayloadKind) (transport.Payload, error) {
	cfg, err := label.ConfigFor(heightMM)
	if err != nil {
		return transport.Payload{}, err
	}
	content := label.Compose(item, b.Catalog, cfg, label.Options{Initial: initial})

	switch kind {
	case transport.PayloadStream:
		return transport.Payload{Kind: kind, Data: []byte(stream.Render(content, cfg))}, nil
	case transport.PayloadRaster:
		png, err := raster.Render(content, cfg)
		if err != nil {
			return transport.Payload{}, fmt.Errorf("render %s: %w", item.Name, err)
		}
		return transport.Payload{Kind: kind, Data: png}, nil
	default:
		return transport.Payload{}, fmt.Errorf("unknown payload kind %d", kind)
	}
}
