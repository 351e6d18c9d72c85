package intake_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/mrcode/nightscout-fpu/internal/fpu"
	"github.com/mrcode/nightscout-fpu/internal/intake"
	"github.com/mrcode/nightscout-fpu/internal/models"
	"github.com/shopspring/decimal"
)

func grams(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var _ = Describe("Service", func() {
	var (
		mockCtrl *gomock.Controller
		config   *MockConfigurationPort
		storage  *MockStoragePort
		dosing   *MockDosingPort
		svc      *intake.Service
		cfg      models.FPUConfig
		ctx      context.Context
		entry    time.Time
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		config = NewMockConfigurationPort(mockCtrl)
		storage = NewMockStoragePort(mockCtrl)
		dosing = NewMockDosingPort(mockCtrl)
		svc = intake.NewService(config, storage, dosing)
		ctx = context.Background()
		entry = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

		cfg = models.FPUConfig{
			IntervalMinutes:         5,
			MaxDurationHours:        8,
			AdjustmentFactor:        grams("1.0"),
			DelayMinutes:            60,
			UseEquivalentConversion: true,
		}
		config.EXPECT().FPU().DoAndReturn(func() models.FPUConfig { return cfg }).AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should do nothing for an empty intake", func() {
		result, err := svc.Add(ctx, intake.Request{At: entry})

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Outcome).To(Equal(intake.NothingToRecord))
		Expect(result.Carbs).To(BeNil())
		Expect(result.Equivalents()).To(BeEmpty())
	})

	It("should reject negative quantities", func() {
		_, err := svc.Add(ctx, intake.Request{Carbs: grams("-1"), At: entry})

		Expect(errors.Is(err, intake.ErrNegativeQuantity)).To(BeTrue())
	})

	It("should store carbs only as one direct record", func() {
		storage.EXPECT().
			AppendBatch(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, records []models.IntakeRecord) error {
				Expect(records).To(HaveLen(1))
				Expect(records[0].IsEquivalent).To(BeFalse())
				Expect(records[0].GroupID).To(BeNil())
				Expect(records[0].Grams.Equal(grams("30"))).To(BeTrue())
				Expect(records[0].Timestamp).To(Equal(entry))
				return nil
			})
		dosing.EXPECT().RequestConfirmation(gomock.Any(), gomock.Any())

		result, err := svc.Add(ctx, intake.Request{Carbs: grams("30"), At: entry})

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Outcome).To(Equal(intake.AwaitingConfirmation))
		Expect(result.Carbs).NotTo(BeNil())
		Expect(result.Plan).To(BeNil())
	})

	It("should store equivalents and carbs as separate batches", func() {
		var batches [][]models.IntakeRecord
		storage.EXPECT().
			AppendBatch(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, records []models.IntakeRecord) error {
				batches = append(batches, records)
				return nil
			}).Times(2)
		dosing.EXPECT().RequestConfirmation(gomock.Any(), gomock.Any()).
			Do(func(_ context.Context, req models.ConfirmationRequest) {
				Expect(req.Carbs.Equal(grams("40"))).To(BeTrue())
				Expect(req.Equivalents).To(HaveLen(75))
				Expect(req.EquivalentGrams().Equal(grams("52.5"))).To(BeTrue())
			})

		result, err := svc.Add(ctx, intake.Request{
			Carbs:   grams("40"),
			Fat:     grams("50"),
			Protein: grams("20"),
			At:      entry,
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(batches).To(HaveLen(2))

		equivalents := batches[0]
		Expect(equivalents).To(HaveLen(75))
		Expect(equivalents[0].Timestamp).To(Equal(entry.Add(60 * time.Minute)))
		Expect(equivalents[1].Timestamp).To(Equal(entry.Add(65 * time.Minute)))
		for _, r := range equivalents {
			Expect(r.IsEquivalent).To(BeTrue())
			Expect(r.Group()).To(Equal(result.Plan.GroupID))
		}

		Expect(batches[1]).To(HaveLen(1))
		Expect(batches[1][0].IsEquivalent).To(BeFalse())
	})

	It("should not convert when conversion is off", func() {
		cfg.UseEquivalentConversion = false
		dosing.EXPECT().RequestConfirmation(gomock.Any(), gomock.Any())

		result, err := svc.Add(ctx, intake.Request{Fat: grams("50"), At: entry})

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Plan).To(BeNil())
		Expect(result.Outcome).To(Equal(intake.AwaitingConfirmation))
	})

	It("should recalculate synchronously when confirmation is skipped", func() {
		cfg.SkipConfirmation = true
		storage.EXPECT().AppendBatch(gomock.Any(), gomock.Any()).Return(nil)
		dosing.EXPECT().RecalculateSynchronously(gomock.Any()).Return(nil)

		result, err := svc.Add(ctx, intake.Request{Carbs: grams("10"), At: entry})

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Outcome).To(Equal(intake.AutoDosed))
	})

	It("should propagate dosing failures", func() {
		cfg.SkipConfirmation = true
		storage.EXPECT().AppendBatch(gomock.Any(), gomock.Any()).Return(nil)
		dosing.EXPECT().RecalculateSynchronously(gomock.Any()).Return(errors.New("loop busy"))

		_, err := svc.Add(ctx, intake.Request{Carbs: grams("10"), At: entry})

		Expect(errors.Is(err, intake.ErrDosingTriggerFailure)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("loop busy"))
	})

	It("should propagate storage failures without dosing", func() {
		storage.EXPECT().AppendBatch(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

		_, err := svc.Add(ctx, intake.Request{Fat: grams("50"), Protein: grams("20"), Carbs: grams("5"), At: entry})

		Expect(errors.Is(err, intake.ErrStorageFailure)).To(BeTrue())
	})

	It("should write nothing for a degenerate equivalent size", func() {
		cfg.MaxDurationHours = 24

		_, err := svc.Add(ctx, intake.Request{Fat: grams("0.1"), Carbs: grams("20"), At: entry})

		Expect(errors.Is(err, fpu.ErrDegenerateEquivalentSize)).To(BeTrue())
	})

	It("should give each call its own group", func() {
		storage.EXPECT().AppendBatch(gomock.Any(), gomock.Any()).Return(nil).Times(2)
		dosing.EXPECT().RequestConfirmation(gomock.Any(), gomock.Any()).Times(2)

		a, err := svc.Add(ctx, intake.Request{Fat: grams("30"), At: entry})
		Expect(err).NotTo(HaveOccurred())
		b, err := svc.Add(ctx, intake.Request{Fat: grams("30"), At: entry})
		Expect(err).NotTo(HaveOccurred())

		Expect(a.Plan.GroupID).NotTo(Equal(b.Plan.GroupID))
	})

	It("should preview without touching storage", func() {
		plan, err := svc.Preview(grams("50"), grams("20"), entry)

		Expect(err).NotTo(HaveOccurred())
		Expect(plan.Records).To(HaveLen(75))
	})

	It("should build requests from presets", func() {
		preset := models.MealPreset{Dish: "Pizza", Carbs: grams("60"), Fat: grams("25"), Protein: grams("30")}

		req := intake.RequestFromPreset(preset, entry)

		Expect(req.Carbs.Equal(grams("60"))).To(BeTrue())
		Expect(req.Fat.Equal(grams("25"))).To(BeTrue())
		Expect(req.At).To(Equal(entry))
	})
})
