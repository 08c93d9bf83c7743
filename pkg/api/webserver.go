package api

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"path"
	"strconv"

	"github.com/chenBenjamin97/pitch-segmenter/pkg/segment"
	"github.com/chenBenjamin97/pitch-segmenter/pkg/utils"
	"github.com/chenBenjamin97/pitch-segmenter/pkg/video"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gocv.io/x/gocv"
	"golang.org/x/image/bmp"
)

//maxFrameBytes limits the body of a single frame request
const maxFrameBytes = 32 << 20

//SetRouter builds the HTTP API. Uploaded videos are annotated by sessions of reg, single frames are
//annotated on the spot with a pipeline built from cfg.
func SetRouter(reg *video.Registry, cfg segment.Config) *gin.Engine {
	r := gin.Default()

	//serve html pages to client
	if static := viper.GetString("frontend.static-files-path"); static != "" {
		r.Static("/client", static)
		r.StaticFile("/", static+"home_page/dist/index.html")
	}

	apiRoutes := r.Group("/api")

	apiRoutes.GET("/ReadyVideosNames", func(ctx *gin.Context) {
		if names, err := utils.ListDir(viper.GetString("directory.ready")); err != nil {
			ctx.Status(http.StatusInternalServerError)
		} else {
			ctx.JSON(http.StatusOK, names)
		}
	})

	apiRoutes.GET("/UserUploadsVideosNames", func(ctx *gin.Context) {
		if names, err := utils.ListDir(viper.GetString("directory.source")); err != nil {
			ctx.Status(http.StatusInternalServerError)
		} else {
			ctx.JSON(http.StatusOK, names)
		}
	})

	apiRoutes.GET("/Play", func(ctx *gin.Context) {
		videoName := ctx.Query("name")
		if videoName == "" {
			ctx.Status(http.StatusNotAcceptable) //missing url parameter
			return
		}

		analyzed := ctx.Query("analyzed")
		if analyzed != "true" && analyzed != "false" {
			ctx.Status(http.StatusNotAcceptable) //missing url parameter
			return
		}

		var videoPath string
		if analyzed == "true" {
			videoPath = path.Join(viper.GetString("directory.ready"), path.Base(videoName)+"."+viper.GetString("video.prod_format"))
		} else {
			videoPath = path.Join(viper.GetString("directory.source"), path.Base(videoName)+"."+viper.GetString("video.prod_format"))
		}

		if _, err := os.Stat(videoPath); err != nil {
			if os.IsNotExist(err) {
				ctx.Status(http.StatusNotFound)
			} else {
				ctx.Status(http.StatusInternalServerError)
			}
			return
		}

		ctx.Header("Content-Type", "video/mp4")
		http.ServeFile(ctx.Writer, ctx.Request, videoPath)
	})

	apiRoutes.POST("/Upload", func(ctx *gin.Context) {
		mode, err := segment.ParseViewMode(ctx.DefaultQuery("mode", utils.DefaultViewMode))
		if err != nil {
			ctx.String(http.StatusBadRequest, err.Error())
			return
		}

		file, fHeader, err := ctx.Request.FormFile("video")
		if err != nil {
			ctx.Status(http.StatusBadRequest)
			return
		}
		defer file.Close()

		fileName := path.Base(fHeader.Filename)
		if existNames, err := utils.ListDir(viper.GetString("directory.source")); err != nil {
			ctx.Status(http.StatusInternalServerError)
			return
		} else if utils.InSlice(fileName, existNames) {
			ctx.Status(http.StatusNotAcceptable)
			return
		}

		log.Info().Str("name", fileName).Int64("size", fHeader.Size).Msg("api/Upload: received new file")

		fileBytes, err := io.ReadAll(file)
		if err != nil {
			log.Error().Err(err).Msg("api/Upload: could not read request's body")
			ctx.Status(http.StatusInternalServerError)
			return
		}

		srcFilePath := path.Join(viper.GetString("directory.source"), fileName)
		if err = os.WriteFile(srcFilePath, fileBytes, 0444); err != nil {
			log.Error().Err(err).Str("path", srcFilePath).Msg("api/Upload: could not write file")
			ctx.Status(http.StatusInternalServerError)
			return
		}

		s, err := reg.Start(fileName, mode)
		if err != nil {
			log.Error().Err(err).Msg("api/Upload: could not start session")
			ctx.Status(http.StatusInternalServerError)
			return
		}

		ctx.JSON(http.StatusAccepted, gin.H{"session": s.ID.String()})
	})

	apiRoutes.GET("/Sessions", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, reg.List())
	})

	apiRoutes.GET("/Sessions/:id", func(ctx *gin.Context) {
		s, ok := reg.Get(ctx.Param("id"))
		if !ok {
			ctx.Status(http.StatusNotFound)
			return
		}
		ctx.JSON(http.StatusOK, s.Status())
	})

	apiRoutes.POST("/Sessions/:id/Lock", func(ctx *gin.Context) {
		s, ok := reg.Get(ctx.Param("id"))
		if !ok {
			ctx.Status(http.StatusNotFound)
			return
		}
		s.RequestLock()
		ctx.Status(http.StatusAccepted)
	})

	apiRoutes.POST("/Frame", func(ctx *gin.Context) {
		annotateFrame(ctx, cfg)
	})

	return r
}

//annotateFrame runs a single uploaded image through a fresh pipeline. The lock trigger is off so every
//box is drawn in its own region's mean colour.
func annotateFrame(ctx *gin.Context, cfg segment.Config) {
	mode, err := segment.ParseViewMode(ctx.DefaultQuery("mode", utils.DefaultViewMode))
	if err != nil {
		ctx.String(http.StatusBadRequest, err.Error())
		return
	}
	format := ctx.DefaultQuery("format", utils.ImageFormats[0])
	if !utils.InSlice(format, utils.ImageFormats) {
		ctx.String(http.StatusBadRequest, "unknown format '%s'", format)
		return
	}

	file, _, err := ctx.Request.FormFile("image")
	if err != nil {
		ctx.Status(http.StatusBadRequest)
		return
	}
	defer file.Close()

	imgBytes, err := io.ReadAll(io.LimitReader(file, maxFrameBytes))
	if err != nil {
		ctx.Status(http.StatusBadRequest)
		return
	}

	bgr, err := gocv.IMDecode(imgBytes, gocv.IMReadColor)
	if err != nil {
		ctx.String(http.StatusBadRequest, "could not decode image")
		return
	}
	defer bgr.Close()
	if bgr.Empty() {
		ctx.String(http.StatusBadRequest, "could not decode image")
		return
	}

	rgba := gocv.NewMat()
	defer rgba.Close()
	gocv.CvtColor(bgr, &rgba, gocv.ColorBGRToRGBA)

	cfg.Lock = segment.LockTrigger{}
	p, err := segment.New(cfg)
	if err != nil {
		ctx.Status(http.StatusInternalServerError)
		return
	}
	defer p.Close()

	res, err := p.Process(&rgba, mode)
	if err != nil {
		log.Error().Err(err).Msg("api/Frame: could not process frame")
		ctx.String(http.StatusUnprocessableEntity, err.Error())
		return
	}

	body, contentType, err := encodeFrame(rgba, format)
	if err != nil {
		log.Error().Err(err).Str("format", format).Msg("api/Frame: could not encode frame")
		ctx.Status(http.StatusInternalServerError)
		return
	}

	ctx.Header("X-Detections", strconv.Itoa(len(res.Detections)))
	ctx.Header("X-Rejected", strconv.Itoa(res.Rejected))
	ctx.Data(http.StatusOK, contentType, body)
}

//encodeFrame encodes an RGBA frame as jpg, png or bmp
func encodeFrame(rgba gocv.Mat, format string) ([]byte, string, error) {
	if format == "bmp" {
		img, err := segment.ToRGBA(rgba)
		if err != nil {
			return nil, "", err
		}
		var buf bytes.Buffer
		if err := bmp.Encode(&buf, img); err != nil {
			return nil, "", errors.Wrap(err, "bmp")
		}
		return buf.Bytes(), "image/bmp", nil
	}

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(rgba, &bgr, gocv.ColorRGBAToBGR)

	ext, contentType := gocv.JPEGFileExt, "image/jpeg"
	if format == "png" {
		ext, contentType = gocv.PNGFileExt, "image/png"
	}

	buf, err := gocv.IMEncode(ext, bgr)
	if err != nil {
		return nil, "", errors.Wrap(err, string(ext))
	}
	defer buf.Close()

	//GetBytes points into C memory, copy it before closing
	return append([]byte(nil), buf.GetBytes()...), contentType, nil
}
