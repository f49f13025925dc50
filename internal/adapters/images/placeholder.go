package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"ai-blog-bot/internal/domain"
)

const (
	placeholderWidth  = 800
	placeholderHeight = 600
)

// pickPlaceholder синтезирует одноцветную PNG-заглушку со случайным
// фоном и сохраняет её в хранилище. Терминальная стратегия цепочки:
// при штатной работе не отказывает.
func (r *Resolver) pickPlaceholder(ctx context.Context, req request) (domain.Asset, bool) {
	bg := color.RGBA{
		R: uint8(r.intn(256)),
		G: uint8(r.intn(256)),
		B: uint8(r.intn(256)),
		A: 255,
	}
	img := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))
	for y := 0; y < placeholderHeight; y++ {
		for x := 0; x < placeholderWidth; x++ {
			img.SetRGBA(x, y, bg)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		r.log.Error().Err(err).Msg("images: ошибка кодирования заглушки")
		return domain.Asset{}, false
	}

	name := fmt.Sprintf("ai-generated-%d.png", req.postID)
	asset, err := r.assets.StoreBytes(ctx, name, "image/png", buf.Bytes())
	if err != nil {
		r.log.Error().Err(err).Msg("images: не удалось сохранить заглушку")
		return domain.Asset{}, false
	}
	return asset, true
}
