package scanning

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func encodePNG() []byte {
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

func encodeJPEG() []byte {
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	Expect(jpeg.Encode(&buf, img, nil)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("CompressImage", func() {
	It("re-encodes a PNG as JPEG", func() {
		data, contentType, err := CompressImage(encodePNG(), "image/png")
		Expect(err).NotTo(HaveOccurred())
		Expect(contentType).To(Equal("image/jpeg"))

		img, format, err := image.Decode(bytes.NewReader(data))
		Expect(err).NotTo(HaveOccurred())
		Expect(format).To(Equal("jpeg"))
		Expect(img.Bounds().Dx()).To(Equal(16))
	})

	It("re-encodes a JPEG", func() {
		data, contentType, err := CompressImage(encodeJPEG(), "image/jpeg")
		Expect(err).NotTo(HaveOccurred())
		Expect(contentType).To(Equal("image/jpeg"))
		Expect(data).NotTo(BeEmpty())
	})

	It("fails on data that is not an image", func() {
		_, _, err := CompressImage([]byte("not an image"), "image/png")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("HEIC detection", func() {
	heicHeader := func(brand string) []byte {
		data := []byte{0, 0, 0, 24}
		data = append(data, []byte("ftyp")...)
		data = append(data, []byte(brand)...)
		data = append(data, make([]byte, 12)...)
		return data
	}

	It("recognizes ftyp brands", func() {
		Expect(isHEICFormat(heicHeader("heic"))).To(BeTrue())
		Expect(isHEICFormat(heicHeader("mif1"))).To(BeTrue())
		Expect(isHEICFormat(encodePNG())).To(BeFalse())
	})

	It("recognizes HEIC mime types", func() {
		Expect(isHEICMimeType("image/heic")).To(BeTrue())
		Expect(isHEICMimeType("image/heif")).To(BeTrue())
		Expect(isHEICMimeType("image/png")).To(BeFalse())
	})
})
