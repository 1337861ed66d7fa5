package http

import (
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/marmos91/filewallet/pkg/files"
)

// Route names used for metrics and logs.
const (
	routeCreateFolder = "create_folder"
	routeDeleteFolder = "delete_folder"
	routeList         = "list"
	routeUpload       = "upload"
	routeDownload     = "download"
	routeDelete       = "delete"
	routeStatus       = "status"
)

type createFolderRequest struct {
	Name         string `json:"name" form:"name"`
	ParentFolder string `json:"parentFolder" form:"parentFolder"`
}

type createFolderResponse struct {
	Success bool                 `json:"success"`
	Folder  *files.CreatedFolder `json:"folder"`
}

type deleteFolderResponse struct {
	Success bool   `json:"success"`
	Deleted string `json:"deleted"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func (a *HTTPAdapter) registerRoutes(r fiber.Router) {
	api := r.Group("/api")
	api.Post("/folder", a.handle(routeCreateFolder, true, a.createFolder))
	api.Delete("/folder", a.handle(routeDeleteFolder, true, a.deleteFolder))
	api.Get("/list", a.handle(routeList, false, a.list))
	api.Post("/upload", a.handle(routeUpload, true, a.upload))
	api.Get("/file/:id/download", a.handle(routeDownload, false, a.download))
	api.Delete("/file/:id", a.handle(routeDelete, true, a.deleteFile))

	r.Get("/status", a.handle(routeStatus, false, a.status))
}

func (a *HTTPAdapter) createFolder(c *fiber.Ctx, caller files.Caller) error {
	var req createFolderRequest
	// An empty body reaches the service so authentication is checked first.
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return errBadBody(err)
		}
	}

	folder, err := a.svc.CreateFolder(c.UserContext(), caller, req.Name, req.ParentFolder)
	if err != nil {
		return err
	}
	return c.JSON(createFolderResponse{Success: true, Folder: folder})
}

func (a *HTTPAdapter) deleteFolder(c *fiber.Ctx, caller files.Caller) error {
	deleted, err := a.svc.DeleteFolder(c.UserContext(), caller, c.Query("path"))
	if err != nil {
		return err
	}
	return c.JSON(deleteFolderResponse{Success: true, Deleted: deleted})
}

func (a *HTTPAdapter) list(c *fiber.Ctx, caller files.Caller) error {
	listing, err := a.svc.List(c.UserContext(), caller, c.Query("folder"))
	if err != nil {
		return err
	}
	return c.JSON(listing)
}

func (a *HTTPAdapter) upload(c *fiber.Ctx, caller files.Caller) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return errNoFile()
	}

	f, err := fh.Open()
	if err != nil {
		return errBadBody(err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return errBadBody(err)
	}
	a.metrics.RecordBytesTransferred("in", int64(len(data)))

	record, err := a.svc.Upload(c.UserContext(), caller, files.UploadInput{
		Data:     data,
		Name:     fh.Filename,
		MimeType: fh.Header.Get(fiber.HeaderContentType),
		Folder:   c.FormValue("folder"),
	})
	if err != nil {
		return err
	}
	return c.JSON(record)
}

func (a *HTTPAdapter) download(c *fiber.Ctx, caller files.Caller) error {
	dl, err := a.svc.Download(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}

	if dl.RedirectURL != "" {
		return c.Redirect(dl.RedirectURL, fiber.StatusFound)
	}

	mimeType := dl.Record.MimeType
	if mimeType == "" {
		mimeType = files.DefaultMimeType
	}
	c.Set(fiber.HeaderContentType, mimeType)
	c.Set(fiber.HeaderContentDisposition, contentDisposition(dl.Record.Name))
	a.metrics.RecordBytesTransferred("out", int64(len(dl.Data)))

	// fasthttp derives Content-Length from the body.
	return c.Send(dl.Data)
}

func (a *HTTPAdapter) deleteFile(c *fiber.Ctx, caller files.Caller) error {
	if err := a.svc.Delete(c.UserContext(), caller, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(successResponse{Success: true})
}

func (a *HTTPAdapter) status(c *fiber.Ctx, caller files.Caller) error {
	st, err := a.svc.Status(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(st)
}

var dispositionEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r", "", "\n", "")

func contentDisposition(name string) string {
	return fmt.Sprintf(`attachment; filename="%s"`, dispositionEscaper.Replace(name))
}
