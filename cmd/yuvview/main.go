package main

import (
	"flag"
	"image"
	"image/png"
	"os"
	"sync/atomic"

	"golang.org/x/image/draw"

	"github.com/gdamore/tcell/v2"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/rivo/tview"
	"github.com/sirupsen/logrus"

	"github.com/kevmo314/go-framegrab/pkg/yuv"
)

type Display struct {
	frame atomic.Value
}

func (g *Display) Update() error {
	return nil
}

func (g *Display) Draw(screen *ebiten.Image) {
	screen.DrawImage(g.frame.Load().(*ebiten.Image), &ebiten.DrawImageOptions{})
}

func (g *Display) Layout(outsideWidth, outsideHeight int) (int, int) {
	frame := g.frame.Load().(*ebiten.Image)
	return frame.Bounds().Dx(), frame.Bounds().Dy()
}

func main() {
	width := flag.Int("width", 640, "picture width")
	height := flag.Int("height", 480, "picture height")
	window := flag.Bool("window", false, "show the picture in a window instead of the terminal (requires a display)")
	pngPath := flag.String("png", "", "write the picture as a png and exit")
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stderr)

	if flag.NArg() != 1 {
		log.Fatalf("usage: %s [flags] <file.yuv>", os.Args[0])
	}
	path := flag.Arg(0)

	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", path, err)
	}
	img, err := yuv.ReadImage(f, *width, *height)
	f.Close()
	if err != nil {
		log.Fatalf("Failed to read %dx%d 4:2:0 picture from %s: %v", *width, *height, path, err)
	}

	if *pngPath != "" {
		if err := writePNG(*pngPath, img); err != nil {
			log.WithError(err).Fatal("png export failed")
		}
		log.WithFields(logrus.Fields{"path": *pngPath, "width": *width, "height": *height}).Info("saved png")
		return
	}

	if *window {
		g := &Display{}
		g.frame.Store(ebiten.NewImageFromImage(img))
		ebiten.SetWindowTitle(path)
		ebiten.SetWindowSize(*width, *height)
		if err := ebiten.RunGame(g); err != nil {
			log.WithError(err).Fatal("ebiten error")
		}
		return
	}

	app := tview.NewApplication()

	preview := tview.NewImage()
	preview.SetColors(256).SetDithering(tview.DitheringNone).SetBorder(true).SetTitle(path)
	pw := 96
	ph := pw * *height / *width
	preview.SetImage(resize(img, pw, ph))

	app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyEscape || ev.Rune() == 'q' {
			app.Stop()
			return nil
		}
		return ev
	})

	if err := app.SetRoot(preview, true).Run(); err != nil {
		log.WithError(err).Fatal("terminal preview failed")
	}
}

func writePNG(path string, img image.Image) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func resize(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}
