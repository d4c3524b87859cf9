package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/h2non/filetype"

	"github.com/writervault/backend/internal/http/handlers/common"
	"github.com/writervault/backend/internal/http/response"
	"github.com/writervault/backend/internal/storage"
)

// Разрешённые типы обложек.
var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// MediaHandler управляет загрузкой обложек.
type MediaHandler struct {
	covers *storage.CoverStorage
}

// NewMediaHandler создаёт хэндлер медиа.
func NewMediaHandler(covers *storage.CoverStorage) *MediaHandler {
	return &MediaHandler{covers: covers}
}

// UploadCover обрабатывает POST /media/covers.
// Тип файла проверяется по магическим байтам, а не по расширению с клиента.
func (h *MediaHandler) UploadCover(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "поле file обязательно")
		return
	}
	if file.Size == 0 {
		response.BadRequest(c, "файл не может быть пустым")
		return
	}
	if file.Size > h.covers.MaxUploadBytes() {
		response.BadRequest(c, fmt.Sprintf("размер файла превышает лимит %d байт", h.covers.MaxUploadBytes()))
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		response.BadRequest(c, "неподдерживаемый формат файла, разрешены: jpg, jpeg, png, gif, webp")
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "не удалось открыть файл"})
		return
	}
	defer src.Close()

	// Первые 512 байт достаточно для определения типа по магическим байтам.
	buffer := make([]byte, 512)
	n, err := src.Read(buffer)
	if err != nil && err != io.EOF {
		response.BadRequest(c, "не удалось прочитать файл")
		return
	}

	kind, err := filetype.Match(buffer[:n])
	if err != nil || kind == filetype.Unknown {
		response.BadRequest(c, "не удалось определить тип файла, разрешены только изображения")
		return
	}
	if !allowedMimeTypes[kind.MIME.Value] {
		response.BadRequest(c, fmt.Sprintf("неподдерживаемый тип файла (%s)", kind.MIME.Value))
		return
	}

	expectedExt := "." + kind.Extension
	jpegAlias := (ext == ".jpg" && expectedExt == ".jpeg") || (ext == ".jpeg" && expectedExt == ".jpg")
	if ext != expectedExt && !jpegAlias {
		response.BadRequest(c, fmt.Sprintf("расширение файла (%s) не соответствует реальному типу (%s)", ext, expectedExt))
		return
	}

	if seeker, ok := src.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "не удалось сбросить позицию файла"})
			return
		}
	}

	relativePath, size, err := h.covers.Save(c.Request.Context(), userID, file.Filename, src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	response.Created(c, gin.H{
		"path": filepath.ToSlash(relativePath),
		"type": kind.MIME.Value,
		"size": size,
	})
}
