package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Image описывает изображение, которое кладётся в объектное хранилище
type Image struct {
	ObjectKey   string
	ContentType string
	Data        []byte
}

func NewImage(objectKey, contentType string, data []byte) *Image {
	return &Image{
		ObjectKey:   objectKey,
		ContentType: contentType,
		Data:        data,
	}
}

func (i *Image) Size() int64 {
	return int64(len(i.Data))
}

var imageExtensions = map[string]string{
	".jpg":  "jpg",
	".jpeg": "jpg",
	".png":  "png",
	".webp": "webp",
}

// ImageObjectKey строит детерминированный ключ объекта для картинки товара:
// products/<source>/<external_id>/<sha1(url)>.<ext>.
func ImageObjectKey(source Source, externalID, imageURL string) string {
	sum := sha1.Sum([]byte(imageURL))

	ext := "jpg"
	if u, err := url.Parse(imageURL); err == nil {
		if known, ok := imageExtensions[strings.ToLower(path.Ext(u.Path))]; ok {
			ext = known
		}
	}

	return fmt.Sprintf("products/%s/%s/%s.%s", source, url.PathEscape(externalID), hex.EncodeToString(sum[:]), ext)
}
