// Package runtime provides the fixed C support library that every emitted
// translation unit links against: lookup interpolation and the handful of
// stateful primitives (delay, smooth, trend) that a single C expression
// cannot express inline. This mirrors the way the teacher's internal/ca65
// package carries a fixed assembler-specific preamble that every emitted
// .asm file starts with.
package runtime

// FileName is the name the emitter writes the runtime helper source under.
const FileName = "vensim_runtime.h"

// Source is the complete contents of the runtime helper header. It is a
// header-only library so the emitted model source and the runtime compile as
// a single translation unit without a build-system change.
const Source = `#ifndef VENSIM_RUNTIME_H
#define VENSIM_RUNTIME_H

#include <math.h>
#include <stddef.h>

/* Lookup table interpolation (spec: lookup/data variables). Points must be
 * sorted by x; values outside the table's range clamp to the nearest end. */
typedef struct {
    const double *x;
    const double *y;
    int n;
} VensimLookup;

static inline double _LOOKUP(const VensimLookup *table, double input) {
    if (table->n <= 0) {
        return 0.0;
    }
    if (input <= table->x[0]) {
        return table->y[0];
    }
    if (input >= table->x[table->n - 1]) {
        return table->y[table->n - 1];
    }
    for (int i = 1; i < table->n; i++) {
        if (input <= table->x[i]) {
            double x0 = table->x[i - 1], x1 = table->x[i];
            double y0 = table->y[i - 1], y1 = table->y[i];
            double frac = (input - x0) / (x1 - x0);
            return y0 + frac * (y1 - y0);
        }
    }
    return table->y[table->n - 1];
}

static inline double _IF_THEN_ELSE(int cond, double t, double f) {
    return cond ? t : f;
}

static inline double _MIN(double a, double b) { return a < b ? a : b; }
static inline double _MAX(double a, double b) { return a > b ? a : b; }

/* Divide guarding a zero denominator: returns 0 when b is zero. */
static inline double _ZIDZ(double a, double b) {
    return b == 0.0 ? 0.0 : a / b;
}

/* Divide guarding a zero denominator: returns x whenever b is zero
 * (whatever a is), otherwise a / b. */
static inline double _XIDZ(double a, double b, double x) {
    if (a == 0.0 && b == 0.0) {
        return x;
    }
    return b == 0.0 ? x : a / b;
}

#define VENSIM_MAX_SLOTS 256
#define VENSIM_MAX_DELAY_STEPS 4096

/* First-order exponential smooth/delay state, one slot per SMOOTH/DELAY1
 * call site. SMOOTH3/DELAY3 chain three of these with time/3 each. */
typedef struct {
    double value;
    int initialized;
} VensimSmoothState;

static VensimSmoothState _smooth_slots[VENSIM_MAX_SLOTS];

static inline double _SMOOTH1(int slot, double input, double smooth_time, double init, double dt) {
    VensimSmoothState *s = &_smooth_slots[slot];
    if (!s->initialized) {
        s->value = init;
        s->initialized = 1;
        return s->value;
    }
    if (smooth_time > 0.0) {
        s->value += dt / smooth_time * (input - s->value);
    } else {
        s->value = input;
    }
    return s->value;
}

/* DELAY1: a first-order material delay. The stock holds delay_time * rate
 * units of material; output is the stock divided by delay_time. */
static VensimSmoothState _delay1_slots[VENSIM_MAX_SLOTS];

static inline double _DELAY1(int slot, double input, double delay_time, double init, double dt) {
    VensimSmoothState *s = &_delay1_slots[slot];
    if (!s->initialized) {
        s->value = init * delay_time;
        s->initialized = 1;
        return delay_time > 0.0 ? s->value / delay_time : input;
    }
    double outflow = delay_time > 0.0 ? s->value / delay_time : input;
    s->value += dt * (input - outflow);
    return outflow;
}

/* SMOOTH3/DELAY3 cascade three single-order stages with time/3 each. slot,
 * slot+1 and slot+2 must be reserved exclusively for this call site. */
static inline double _SMOOTH3(int slot, double input, double smooth_time, double init, double dt) {
    double stage_time = smooth_time / 3.0;
    double s1 = _SMOOTH1(slot, input, stage_time, init, dt);
    double s2 = _SMOOTH1(slot + 1, s1, stage_time, init, dt);
    double s3 = _SMOOTH1(slot + 2, s2, stage_time, init, dt);
    return s3;
}

static inline double _DELAY3(int slot, double input, double delay_time, double init, double dt) {
    double stage_time = delay_time / 3.0;
    double s1 = _DELAY1(slot, input, stage_time, init, dt);
    double s2 = _DELAY1(slot + 1, s1, stage_time, init, dt);
    double s3 = _DELAY1(slot + 2, s2, stage_time, init, dt);
    return s3;
}

/* DELAY FIXED: a pure pipeline delay of a fixed number of steps, as opposed
 * to the exponential material delays above. */
typedef struct {
    double buffer[VENSIM_MAX_DELAY_STEPS];
    int steps;
    int head;
    int initialized;
} VensimFixedDelayState;

static VensimFixedDelayState _fixed_delay_slots[VENSIM_MAX_SLOTS];

static inline double _DELAY_FIXED(int slot, double input, double delay_time, double init, double dt) {
    VensimFixedDelayState *s = &_fixed_delay_slots[slot];
    if (!s->initialized) {
        s->steps = (int)(delay_time / dt + 0.5);
        if (s->steps < 1) {
            s->steps = 1;
        }
        if (s->steps > VENSIM_MAX_DELAY_STEPS) {
            s->steps = VENSIM_MAX_DELAY_STEPS;
        }
        for (int i = 0; i < s->steps; i++) {
            s->buffer[i] = init;
        }
        s->head = 0;
        s->initialized = 1;
    }
    double out = s->buffer[s->head];
    s->buffer[s->head] = input;
    s->head = (s->head + 1) % s->steps;
    return out;
}

/* TREND: the fractional rate of change of input relative to its own
 * SMOOTH1-smoothed trajectory. */
static inline double _TREND(int slot, double input, double average_time, double init, double dt) {
    double level = _SMOOTH1(slot, input, average_time, input / (1.0 + init * average_time), dt);
    if (level == 0.0 || average_time == 0.0) {
        return 0.0;
    }
    return (input - level) / (average_time * level);
}

#endif /* VENSIM_RUNTIME_H */
`
