package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/cogniscan/internal/apperr"
	"github.com/agenthands/cogniscan/internal/dataset"
	"github.com/agenthands/cogniscan/internal/model"
	"github.com/agenthands/cogniscan/internal/pipeline"
	"github.com/agenthands/cogniscan/internal/results"
)

type dashboardView struct {
	Session        model.Session
	Notices        []model.Notice
	Snapshot       pipeline.Snapshot
	CanSubmit      bool
	CanTrain       bool
	CanViewResults bool
	Results        *ResultsPage
	Valid          int
	Distribution   []results.ClassShare
	Breakdowns     []results.Breakdown
	Training       *model.TrainingResult
	TrainingBusy   bool
	Patient        *model.PredictionRecord
	PatientFields  []string
}

var patientFields = []string{"NACCID", "BIRTHYR", "SEX", "EDUC", "UDSBENTC", "MOCATRAI", "AMNDEM", "NACCPPAG", "AMYLPET", "DYSILL", "DYSILLIF"}

func (s *Server) Dashboard(c *gin.Context) {
	w, v := workspaceOf(c), viewOf(c)
	sess, _ := w.Session()
	snap := v.Pipeline.Snapshot()

	view := dashboardView{
		Session:        sess,
		Notices:        w.TakeNotices(),
		Snapshot:       snap,
		CanSubmit:      v.Pipeline.CanSubmit(),
		CanTrain:       sess.IsAdmin(),
		CanViewResults: v.Pipeline.CanViewResults(),
		Training:       v.Trainer.Result(),
		TrainingBusy:   !v.Trainer.CanSubmit(),
		Patient:        v.PatientResult(),
		PatientFields:  patientFields,
	}
	page, _ := strconv.Atoi(c.Query("page"))
	if rp, ok := v.Page(s.cfg.Results.PageSize, page); ok {
		view.Results = &rp
	}
	if snap.Batch != nil {
		view.Valid = snap.Batch.ValidCount()
		view.Distribution = snap.Batch.Distribution
		view.Breakdowns = snap.Batch.Breakdowns
	}
	s.render(c, http.StatusOK, "dashboard", view)
}

// upload reads the posted CSV after the selection check. A failure is queued
// as a notice and nil is returned.
func (s *Server) upload(c *gin.Context, w *Workspace) dataset.Source {
	fh, err := c.FormFile("file")
	if err != nil {
		w.Notify(apperr.Notice("Validation Error", apperr.Validation("Please select a file")))
		return nil
	}
	if err := dataset.CheckSelection(dataset.NewUploadSource(fh)); err != nil {
		w.Notify(apperr.Notice("Validation Error", err))
		return nil
	}
	src, err := dataset.BufferUpload(fh)
	if err != nil {
		w.Notify(apperr.Notice("Upload Failed", &apperr.ParseError{File: fh.Filename, Err: err}))
		return nil
	}
	return src
}

func (s *Server) SubmitDataset(c *gin.Context) {
	w := workspaceOf(c)
	defer c.Redirect(http.StatusSeeOther, "/dashboard")

	src := s.upload(c, w)
	if src == nil {
		return
	}
	_, err := viewOf(c).Pipeline.Start(c.Request.Context(), pipeline.Request{
		Source:    src,
		Visualize: c.PostForm("visualize") == "on",
	})
	switch {
	case err == nil:
	case errors.Is(err, pipeline.ErrBusy):
		w.Notify(model.Notice{Level: model.NoticeWarning, Title: "Please Wait", Text: "A prediction is already running."})
	case errors.Is(err, pipeline.ErrClosed):
		w.Notify(model.Notice{Level: model.NoticeError, Title: "Session Closed", Text: "Please reload the page."})
	default:
		// selection failures already queued their notice on the pipeline
		s.logger.Debug("submission rejected", "workspace", w.ID, "error", err)
	}
}

func (s *Server) SubmitTraining(c *gin.Context) {
	w := workspaceOf(c)
	defer c.Redirect(http.StatusSeeOther, "/dashboard")

	sess, _ := w.Session()
	if !sess.IsAdmin() {
		w.Notify(model.Notice{Level: model.NoticeError, Title: "Training Unavailable", Text: "Only administrators can train models."})
		return
	}
	src := s.upload(c, w)
	if src == nil {
		return
	}
	trainer := viewOf(c).Trainer
	if !trainer.CanSubmit() {
		w.Notify(model.Notice{Level: model.NoticeWarning, Title: "Please Wait", Text: "A training run is already in progress."})
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	w.training.Add(1)
	go func() {
		defer w.training.Done()
		if _, err := trainer.Submit(ctx, sess.UserID, src); errors.Is(err, pipeline.ErrBusy) {
			w.Notify(model.Notice{Level: model.NoticeWarning, Title: "Please Wait", Text: "A training run is already in progress."})
		}
	}()
}

func (s *Server) SubmitPatient(c *gin.Context) {
	w := workspaceOf(c)
	defer c.Redirect(http.StatusSeeOther, "/dashboard#patient")

	var patient model.PatientAttributes
	if err := c.ShouldBind(&patient); err != nil {
		w.Notify(apperr.Notice("Validation Error", apperr.Validation("Every attribute must be a whole number.")))
		return
	}
	v := viewOf(c)
	rec, err := v.Single.Predict(c.Request.Context(), patient)
	if err != nil {
		w.Notify(apperr.Notice("Prediction Failed", err))
		return
	}
	v.setPatientResult(&rec)
	w.Notify(model.Notice{
		Level: model.NoticeSuccess,
		Title: "Prediction Completed",
		Text:  fmt.Sprintf("Predicted class: %s", model.ClassLabel(rec.ClassLabel)),
	})
}
