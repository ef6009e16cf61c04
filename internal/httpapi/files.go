package httpapi

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"workbench/internal/packager"
	"workbench/internal/params"
	"workbench/internal/processing"
	"workbench/internal/services"
	"workbench/internal/services/imagetools"
	"workbench/internal/services/pdftools"
	"workbench/internal/services/videotools"
	"workbench/internal/textutil"
	"workbench/internal/workspace"
)

// Route names used for logs, history and workspace tags.
const (
	RouteImageResize  = "image_resize"
	RouteImageFilters = "image_filters"
	RoutePDFMerge     = "pdf_merge"
	RoutePDFSplit     = "pdf_split"
	RoutePDFCompress  = "pdf_compress"
	RouteVideoProcess = "video_process"
)

const (
	groupImages = "files"
	groupPDFs   = "pdfs"
	groupPDF    = "pdf"
	groupVideos = "videos"
	groupMusic  = "music"
)

// withForm parses the multipart body under the upload ceiling and removes the
// parser's temporary files once fn returns. A body that is not multipart is
// treated as an empty form so validation reports the missing fields.
func (s *Server) withForm(c *gin.Context, fn func(form *multipart.Form)) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.writeError(c, services.Fail(services.ErrValidation,
				fmt.Sprintf("Upload exceeds the %d MB limit", s.cfg.API.MaxUploadMB), err))
			return
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			form = &multipart.Form{}
		default:
			s.writeError(c, services.Fail(services.ErrValidation, "Could not read upload", err))
			return
		}
	}
	defer func() { _ = form.RemoveAll() }()
	fn(form)
}

// run executes job and streams its packaged result as an attachment.
func (s *Server) run(c *gin.Context, job processing.Job) {
	job.Respond = func(result packager.Result) error {
		c.Header("Content-Type", result.ContentType)
		c.FileAttachment(result.Path, result.Name)
		return nil
	}
	if err := s.runner.Run(c.Request.Context(), job); err != nil {
		if c.Writer.Written() {
			return
		}
		s.writeError(c, err)
	}
}

func uploads(files []*multipart.FileHeader) []workspace.Upload {
	out := make([]workspace.Upload, len(files))
	for i, fh := range files {
		out[i] = workspace.FromFileHeader(fh)
	}
	return out
}

func (s *Server) handleResize(c *gin.Context) {
	s.withForm(c, func(form *multipart.Form) {
		req, files, err := params.ParseResize(form, s.limits)
		if err != nil {
			s.writeError(c, err)
			return
		}
		size := req.Size()
		s.run(c, processing.Job{
			Route:  RouteImageResize,
			Tag:    "resize",
			Inputs: []processing.InputGroup{imageGroup(files)},
			Transform: s.imageTransform("_resized", func(in, out string) error {
				return imagetools.Resize(in, out, size.Width, size.Height)
			}),
			Package: packager.Options{ArchiveName: "resized_images.zip"},
		})
	})
}

func (s *Server) handleFilters(c *gin.Context) {
	s.withForm(c, func(form *multipart.Form) {
		req, files, err := params.ParseFilters(form, s.limits)
		if err != nil {
			s.writeError(c, err)
			return
		}
		s.run(c, processing.Job{
			Route:  RouteImageFilters,
			Tag:    "filters",
			Inputs: []processing.InputGroup{imageGroup(files)},
			Transform: s.imageTransform("_filtered", func(in, out string) error {
				return imagetools.ApplyFilters(in, out, req.Names, req.Intensity)
			}),
			Package: packager.Options{ArchiveName: "filtered_images.zip"},
		})
	})
}

func imageGroup(files []*multipart.FileHeader) processing.InputGroup {
	return processing.InputGroup{Name: groupImages, Prefix: "image", FallbackExt: ".png", Uploads: uploads(files)}
}

// imageTransform applies fn to every image in parallel. Inputs whose declared
// size exceeds limits.max_dimension are rejected before decoding. Artifacts
// keep the upload order.
func (s *Server) imageTransform(suffix string, fn func(in, out string) error) processing.TransformFunc {
	maxDimension := s.limits.MaxDimension
	return func(ctx context.Context, ws *workspace.Workspace, inputs processing.Inputs) ([]packager.Artifact, error) {
		images := inputs[groupImages]
		artifacts := make([]packager.Artifact, len(images))
		err := imagetools.Batch(ctx, len(images), func(_ context.Context, i int) error {
			in := images[i]
			if err := imagetools.CheckDimensions(in.Path, maxDimension); err != nil {
				return err
			}
			ext := imagetools.OutputExt(in.Ext())
			out := ws.OutputPath(ext)
			if err := fn(in.Path, out); err != nil {
				return err
			}
			artifacts[i] = packager.Artifact{
				Path: out,
				Name: textutil.Stem(in.OriginalName, "image") + suffix + ext,
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return artifacts, nil
	}
}

func (s *Server) handleMerge(c *gin.Context) {
	s.withForm(c, func(form *multipart.Form) {
		files, err := params.ParseMerge(form, s.limits)
		if err != nil {
			s.writeError(c, err)
			return
		}
		s.run(c, processing.Job{
			Route:  RoutePDFMerge,
			Tag:    "merge",
			Inputs: []processing.InputGroup{{Name: groupPDFs, Prefix: "pdf", FallbackExt: ".pdf", Uploads: uploads(files)}},
			Transform: func(_ context.Context, ws *workspace.Workspace, inputs processing.Inputs) ([]packager.Artifact, error) {
				for _, in := range inputs[groupPDFs] {
					if err := pdftools.EnsurePDF(in.Path, in.OriginalName); err != nil {
						return nil, err
					}
				}
				out := ws.OutputPath(".pdf")
				if err := s.pdf.Merge(inputs.Paths(groupPDFs), out); err != nil {
					return nil, err
				}
				return []packager.Artifact{{Path: out, Name: "merged.pdf"}}, nil
			},
		})
	})
}

func (s *Server) handleSplit(c *gin.Context) {
	s.withForm(c, func(form *multipart.Form) {
		file, err := params.ParseSplit(form)
		if err != nil {
			s.writeError(c, err)
			return
		}
		stem := textutil.Stem(file.Filename, "document")
		s.run(c, processing.Job{
			Route:  RoutePDFSplit,
			Tag:    "split",
			Inputs: []processing.InputGroup{pdfGroup(file)},
			Transform: func(_ context.Context, ws *workspace.Workspace, inputs processing.Inputs) ([]packager.Artifact, error) {
				in, _ := inputs.First(groupPDF)
				if err := pdftools.EnsurePDF(in.Path, in.OriginalName); err != nil {
					return nil, err
				}
				pages, err := s.pdf.Split(in.Path, filepath.Join(ws.Path, "pages"))
				if err != nil {
					return nil, err
				}
				artifacts := make([]packager.Artifact, len(pages))
				for i, page := range pages {
					artifacts[i] = packager.Artifact{Path: page, Name: fmt.Sprintf("%s_page_%d.pdf", stem, i+1)}
				}
				return artifacts, nil
			},
			Package: packager.Options{ArchiveName: stem + "_pages.zip", ForceArchive: true},
		})
	})
}

func (s *Server) handleCompress(c *gin.Context) {
	s.withForm(c, func(form *multipart.Form) {
		req, file, err := params.ParseCompress(form)
		if err != nil {
			s.writeError(c, err)
			return
		}
		stem := textutil.Stem(file.Filename, "document")
		s.run(c, processing.Job{
			Route:  RoutePDFCompress,
			Tag:    "compress",
			Inputs: []processing.InputGroup{pdfGroup(file)},
			Transform: func(ctx context.Context, ws *workspace.Workspace, inputs processing.Inputs) ([]packager.Artifact, error) {
				in, _ := inputs.First(groupPDF)
				if err := pdftools.EnsurePDF(in.Path, in.OriginalName); err != nil {
					return nil, err
				}
				out := ws.OutputPath(".pdf")
				if err := s.pdf.Compress(ctx, in.Path, out, req.Quality); err != nil {
					return nil, err
				}
				return []packager.Artifact{{Path: out, Name: stem + "_compressed.pdf"}}, nil
			},
		})
	})
}

func pdfGroup(file *multipart.FileHeader) processing.InputGroup {
	return processing.InputGroup{
		Name:        groupPDF,
		Prefix:      "pdf",
		FallbackExt: ".pdf",
		Uploads:     uploads([]*multipart.FileHeader{file}),
	}
}

func (s *Server) handleVideo(c *gin.Context) {
	s.withForm(c, func(form *multipart.Form) {
		req, videos, music, err := params.ParseVideo(form, s.limits)
		if err != nil {
			s.writeError(c, err)
			return
		}
		groups := []processing.InputGroup{
			{Name: groupVideos, Prefix: "video", FallbackExt: ".mp4", Uploads: uploads(videos)},
		}
		if music != nil {
			groups = append(groups, processing.InputGroup{
				Name:        groupMusic,
				Prefix:      "music",
				FallbackExt: ".mp3",
				Uploads:     uploads([]*multipart.FileHeader{music}),
			})
		}
		s.run(c, processing.Job{
			Route:  RouteVideoProcess,
			Tag:    "video",
			Inputs: groups,
			Transform: func(ctx context.Context, ws *workspace.Workspace, inputs processing.Inputs) ([]packager.Artifact, error) {
				var musicPath string
				if track, ok := inputs.First(groupMusic); ok {
					musicPath = track.Path
				}
				out := ws.OutputPath(".mp4")
				opts := videotools.Options{MusicStart: req.MusicStart, Volume: req.Volume}
				if err := s.video.Process(ctx, inputs.Paths(groupVideos), musicPath, out, opts); err != nil {
					return nil, err
				}
				return []packager.Artifact{{Path: out, Name: "video.mp4"}}, nil
			},
		})
	})
}
