/*
Package geom holds the plane geometry shared by the tracker, calibration and
Hough programs: points, quadrilateral object boundaries, 3x3 homographies
and Hough normal form lines.

Homographies are estimated with a normalised DLT on gonum matrices.  This
estimator has no outlier rejection and is meant for clean correspondences
such as optical flow survivors, or as a reference in tests.  The OpenCV
backend in package vision offers RANSAC estimation for raw descriptor
matches.
*/
package geom
