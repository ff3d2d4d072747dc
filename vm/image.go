package vm

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Program images
// ---------------------------------------------------------------------------

// ImageVersion is the current image format version.
const ImageVersion = 1

// ErrImageVersion is returned for images written by an unknown format.
var ErrImageVersion = errors.New("unsupported image version")

// Image is a prescanned program: the source text together with its
// function and global tables. Loading an image skips the prescan.
type Image struct {
	Version   int        `cbor:"1,keyasint"`
	Entry     string     `cbor:"2,keyasint,omitempty"`
	Source    string     `cbor:"3,keyasint"`
	Functions []Function `cbor:"4,keyasint,omitempty"`
	Globals   []Variable `cbor:"5,keyasint,omitempty"`
}

var imageEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	imageEncMode = em
}

// Image prescans the program if needed and captures it as an Image.
// Global values are not saved.
func (in *Interpreter) Image() (*Image, error) {
	if err := in.Prescan(); err != nil {
		return nil, err
	}
	img := &Image{
		Version:   ImageVersion,
		Source:    in.Source(),
		Functions: in.Functions(),
		Globals:   in.Globals(),
	}
	if in.entry != DefaultEntry {
		img.Entry = in.entry
	}
	for i := range img.Globals {
		img.Globals[i].Value = 0
	}
	return img, nil
}

// MarshalImage serializes an image to canonical CBOR.
func MarshalImage(img *Image) ([]byte, error) {
	return imageEncMode.Marshal(img)
}

// UnmarshalImage deserializes an image.
func UnmarshalImage(data []byte) (*Image, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("vm: unmarshal image: %w", err)
	}
	if img.Version != ImageVersion {
		return nil, fmt.Errorf("vm: image version %d: %w", img.Version, ErrImageVersion)
	}
	return &img, nil
}

// LoadImage creates an interpreter from a serialized image. The image's
// entry point is used unless cfg names one.
func LoadImage(data []byte, cfg Config) (*Interpreter, error) {
	img, err := UnmarshalImage(data)
	if err != nil {
		return nil, err
	}
	if cfg.Entry == "" {
		cfg.Entry = img.Entry
	}
	in, err := NewInterpreter(img.Source, cfg)
	if err != nil {
		return nil, err
	}

	if len(img.Functions) > in.limits.MaxFunctions {
		return nil, &Error{Kind: ErrTableFull, Msg: fmt.Sprintf("image has %d functions", len(img.Functions))}
	}
	if len(img.Globals) > in.limits.MaxGlobals {
		return nil, &Error{Kind: ErrTableFull, Msg: fmt.Sprintf("image has %d globals", len(img.Globals))}
	}
	for _, f := range img.Functions {
		if f.Entry < 0 || f.Entry > len(img.Source) {
			return nil, fmt.Errorf("vm: image function %s: entry %d outside source", f.Name, f.Entry)
		}
	}

	in.funcs = append(in.funcs[:0], img.Functions...)
	in.globals = append(in.globals[:0], img.Globals...)
	in.scanned = true
	in.log.Infof("loaded image: %d functions, %d globals", len(in.funcs), len(in.globals))
	return in, nil
}
